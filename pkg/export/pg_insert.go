package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voltlab/gridflow/pkg/series"
)

// Export implements Sink. All rows of one run land in a single
// transaction per table batch; re-exporting the same run upserts so a
// retried export cannot duplicate rows.
func (s *PGSink) Export(ctx context.Context, rep *Report) error {
	if err := s.insertNodeResults(ctx, rep); err != nil {
		return err
	}
	if err := s.insertLineResults(ctx, rep); err != nil {
		return err
	}
	if rep.WorstCase != nil {
		if err := s.insertWorstCases(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

func (s *PGSink) insertNodeResults(ctx context.Context, rep *Report) error {
	query := `
		INSERT INTO node_results (run_id, ts, bus, kind, v_magnitude, v_angle_deg, p, q)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, ts, bus) DO UPDATE SET
			kind = EXCLUDED.kind,
			v_magnitude = EXCLUDED.v_magnitude,
			v_angle_deg = EXCLUDED.v_angle_deg,
			p = EXCLUDED.p,
			q = EXCLUDED.q
	`

	batch := &pgx.Batch{}
	rep.Results.Each(func(res series.Result) {
		for _, n := range res.Nodes {
			batch.Queue(query, rep.RunID, string(res.Timestamp), n.Name, n.Kind.String(),
				n.VMag, n.VAngleDeg, n.P, n.Q)
		}
	})

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert node results: %w", err)
	}
	return nil
}

func (s *PGSink) insertLineResults(ctx context.Context, rep *Report) error {
	query := `
		INSERT INTO line_results (run_id, ts, seq, from_bus, to_bus, i_magnitude, p_from, q_from, p_to, q_to, p_loss, q_loss)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, ts, seq) DO UPDATE SET
			from_bus = EXCLUDED.from_bus,
			to_bus = EXCLUDED.to_bus,
			i_magnitude = EXCLUDED.i_magnitude,
			p_from = EXCLUDED.p_from,
			q_from = EXCLUDED.q_from,
			p_to = EXCLUDED.p_to,
			q_to = EXCLUDED.q_to,
			p_loss = EXCLUDED.p_loss,
			q_loss = EXCLUDED.q_loss
	`

	batch := &pgx.Batch{}
	rep.Results.Each(func(res series.Result) {
		for i, l := range res.Lines {
			batch.Queue(query, rep.RunID, string(res.Timestamp), i, l.From, l.To,
				l.IMag, l.PFrom, l.QFrom, l.PTo, l.QTo, l.PLoss, l.QLoss)
		}
	})

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert line results: %w", err)
	}
	return nil
}

func (s *PGSink) insertWorstCases(ctx context.Context, rep *Report) error {
	query := `
		INSERT INTO worst_cases (run_id, scenario, ts, v_magnitude)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, scenario) DO UPDATE SET
			ts = EXCLUDED.ts,
			v_magnitude = EXCLUDED.v_magnitude
	`

	batch := &pgx.Batch{}
	batch.Queue(query, rep.RunID, "min", string(rep.WorstCase.Min.Timestamp), rep.WorstCase.Min.VMag)
	batch.Queue(query, rep.RunID, "max", string(rep.WorstCase.Max.Timestamp), rep.WorstCase.Max.VMag)

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert worst cases: %w", err)
	}
	return nil
}

// sendBatch executes a batch and surfaces the first failed statement.
func (s *PGSink) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return results.Close()
}
