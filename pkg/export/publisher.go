package export

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports so tcp:// and inproc:// addresses work.
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/voltlab/gridflow/pkg/grid"
	"github.com/voltlab/gridflow/pkg/logging"
)

// ProgressTopic prefixes every published message so subscribers can
// filter.
const ProgressTopic = "RUN:"

// ProgressEvent is the published wire form of one run event.
type ProgressEvent struct {
	Kind       string `json:"kind"`
	RunID      string `json:"run_id"`
	Timestamp  string `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms,omitempty"`
}

// FromRunEvent converts a solve-loop event to its wire form.
func FromRunEvent(ev grid.Event) ProgressEvent {
	out := ProgressEvent{
		Kind:      ev.Kind.String(),
		RunID:     ev.RunID,
		Timestamp: string(ev.Timestamp),
		ElapsedMS: ev.Elapsed.Milliseconds(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	if ev.Kind == grid.TimestampSolved {
		out.Iterations = ev.Stats.Iterations
	}
	return out
}

// Publisher broadcasts run progress events over a mangos PUB socket so
// external tools can follow a study without polling the results. Events
// flow through a buffered channel; the publish loop owns the socket.
type Publisher struct {
	sock      mangos.Socket
	addr      string
	stream    chan ProgressEvent
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
	logger    logging.Logger
}

// NewPublisher creates a publisher for the given address, e.g.
// "tcp://0.0.0.0:5600" or "inproc://gridflow". A nil logger disables
// logging.
func NewPublisher(addr string, logger logging.Logger) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Publisher{
		sock:   sock,
		addr:   addr,
		stream: make(chan ProgressEvent, 256),
		stopCh: make(chan struct{}),
		logger: logger,
	}, nil
}

// Start binds the socket and begins publishing queued events.
func (p *Publisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return fmt.Errorf("publisher already running")
	}

	if err := p.sock.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}

	p.running = true
	p.wg.Add(1)
	go p.publishLoop()

	p.logger.Info("progress publisher started", logging.String("addr", p.addr))
	return nil
}

// Stop drains nothing: queued events not yet sent are dropped, then the
// socket closes. Stopping a publisher that never started is a no-op.
func (p *Publisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.stopCh)
	p.running = false
	p.wg.Wait()

	if err := p.sock.Close(); err != nil {
		p.logger.Warn("failed to close publisher socket", logging.Error(err))
	}

	p.logger.Info("progress publisher stopped")
	return nil
}

// Publish queues an event for broadcast. It blocks while the buffer is
// full and fails once the publisher stopped.
func (p *Publisher) Publish(ev ProgressEvent) error {
	select {
	case p.stream <- ev:
		return nil
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	}
}

func (p *Publisher) publishLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case ev := <-p.stream:
			data, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("failed to marshal progress event", logging.Error(err))
				continue
			}

			// Prepend topic for subscriber-side filtering.
			msg := append([]byte(ProgressTopic), data...)
			if err := p.sock.Send(msg); err != nil {
				p.logger.Warn("failed to publish progress event", logging.Error(err))
			}
		}
	}
}
