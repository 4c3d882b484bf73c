package core

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// RelayService runs a set of pipelines side by side. A pipeline stopping does
// not stop the others.
type RelayService struct {
	pipelines []Pipeline
}

// NewRelayService returns a new service
func NewRelayService(pipelines ...Pipeline) *RelayService {
	return &RelayService{pipelines: pipelines}
}

// StartService starts a relay service
func StartService(ctx context.Context, pipelines ...Pipeline) error {
	return NewRelayService(pipelines...).Start(ctx)
}

func (srv *RelayService) Pipelines() []Pipeline {
	return srv.pipelines
}

// Start runs every pipeline until ctx is done or all of them stopped, and
// returns the errors of the pipelines that stopped on their own.
func (srv *RelayService) Start(ctx context.Context) error {
	if len(srv.pipelines) == 0 {
		return errors.New("no pipeline to run")
	}

	var (
		eg   errgroup.Group
		mu   sync.Mutex
		errs = make([]error, len(srv.pipelines))
	)
	for i, p := range srv.pipelines {
		i, p := i, p
		eg.Go(func() error {
			pc := p.Context()
			ctx, span := tracer.Start(ctx, "RelayService.Run", WithPipelineAttributes(pc), withPackage(p))
			defer span.End()

			pc.Logger.InfoContext(ctx, "starting pipeline")
			err := p.Run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				pc.Logger.InfoContext(ctx, "pipeline stopped")
				return nil
			}
			span.SetStatus(codes.Error, err.Error())
			pc.Logger.ErrorContext(ctx, "pipeline failed", err)

			mu.Lock()
			errs[i] = errors.Wrapf(err, "pipeline %s", pc.Name)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}

// RunOnce performs a single cycle of every pipeline in order.
func (srv *RelayService) RunOnce(ctx context.Context) error {
	var errs []error
	for _, p := range srv.pipelines {
		if err := p.RunOnce(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "pipeline %s", p.Context().Name))
		}
	}
	return errors.Join(errs...)
}

// Statuses returns the status of every pipeline.
func (srv *RelayService) Statuses() []PipelineStatus {
	statuses := make([]PipelineStatus, 0, len(srv.pipelines))
	for _, p := range srv.pipelines {
		statuses = append(statuses, p.Status())
	}
	return statuses
}
