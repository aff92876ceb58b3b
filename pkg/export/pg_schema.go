package export

import "context"

// migrate creates the result tables
func (s *PGSink) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS node_results (
		run_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		bus TEXT NOT NULL,
		kind TEXT NOT NULL,
		v_magnitude DOUBLE PRECISION NOT NULL,
		v_angle_deg DOUBLE PRECISION NOT NULL,
		p DOUBLE PRECISION NOT NULL,
		q DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ts, bus)
	);

	CREATE TABLE IF NOT EXISTS line_results (
		run_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		seq INT NOT NULL,
		from_bus TEXT NOT NULL,
		to_bus TEXT NOT NULL,
		i_magnitude DOUBLE PRECISION NOT NULL,
		p_from DOUBLE PRECISION NOT NULL,
		q_from DOUBLE PRECISION NOT NULL,
		p_to DOUBLE PRECISION NOT NULL,
		q_to DOUBLE PRECISION NOT NULL,
		p_loss DOUBLE PRECISION NOT NULL,
		q_loss DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ts, seq)
	);

	CREATE TABLE IF NOT EXISTS worst_cases (
		run_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		ts TEXT NOT NULL,
		v_magnitude DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, scenario)
	);

	CREATE INDEX IF NOT EXISTS idx_node_results_run ON node_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_node_results_bus ON node_results(run_id, bus);
	CREATE INDEX IF NOT EXISTS idx_line_results_run ON line_results(run_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
