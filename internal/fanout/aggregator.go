package fanout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Aggregator fans a request out to every peer of a source and gathers the
// replies into one report.
type Aggregator struct {
	transport Transport
	registry  *Registry
	locks     *Locks
	log       *zap.Logger
}

func NewAggregator(transport Transport, registry *Registry, locks *Locks, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocks()
	}
	return &Aggregator{
		transport: transport,
		registry:  registry,
		locks:     locks,
		log:       log.Named("fanout"),
	}
}

func (a *Aggregator) Locks() *Locks {
	return a.locks
}

// Broadcast sends req.Command to every peer of src at once and waits for
// all of them. Lines keep the order of src regardless of which peer answers
// first. The error is reserved for src failing or the kind lock not being
// acquired; per-peer failures are report lines.
func (a *Aggregator) Broadcast(ctx context.Context, req BroadcastRequest, src PeerSource, script Script, parse Parser) (Report, error) {
	report := Report{Request: req}

	release, err := a.locks.Acquire(ctx, req.Kind)
	if err != nil {
		return report, err
	}
	defer release()

	peers, err := src.Peers(ctx)
	if err != nil {
		return report, errors.Wrap(err, "read peers")
	}
	if len(peers) == 0 {
		report.NotConfigured = true
		return report, nil
	}

	start := time.Now()
	a.log.Info("Broadcast started",
		zap.String("request", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.Int64("subject", req.Subject),
		zap.Int("peers", len(peers)),
	)

	mapper := iter.Mapper[PeerEndpoint, Result]{MaxGoroutines: len(peers)}
	results := mapper.Map(peers, func(p *PeerEndpoint) Result {
		return a.session(req, *p, script).run(ctx)
	})

	report.Lines = make([]Line, 0, len(results))
	for _, r := range results {
		report.Lines = append(report.Lines, parse(r))
		if r.Artifact != nil {
			report.Artifacts = append(report.Artifacts, *r.Artifact)
		}
	}
	report.Elapsed = time.Since(start)

	a.log.Info("Broadcast finished",
		zap.String("request", req.ID),
		zap.Int("failed", len(report.Failed())),
		zap.Int("files", len(report.Artifacts)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// Query runs a single peer session under the lock of req.Kind.
func (a *Aggregator) Query(ctx context.Context, req BroadcastRequest, peer PeerEndpoint, script Script) (Result, error) {
	release, err := a.locks.Acquire(ctx, req.Kind)
	if err != nil {
		return Result{Peer: peer}, err
	}
	defer release()

	return a.session(req, peer, script).run(ctx), nil
}

// Relay forwards the report files to chat to, in report order. It keeps
// going after a failed forward and returns every error combined.
func (a *Aggregator) Relay(ctx context.Context, report Report, to int64) error {
	var err error
	for _, m := range report.Artifacts {
		if ferr := a.transport.Forward(ctx, m, to); ferr != nil {
			err = multierr.Append(err, errors.Wrapf(ferr, "forward file %d from %d", m.ID, m.Peer))
		}
	}
	return err
}

func (a *Aggregator) session(req BroadcastRequest, peer PeerEndpoint, script Script) *session {
	return &session{
		req:       req,
		peer:      peer,
		script:    script,
		transport: a.transport,
		registry:  a.registry,
		log:       a.log,
	}
}
