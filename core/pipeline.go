package core

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

type PipelineKind string

const (
	PipelineKindFinality     PipelineKind = "finality"
	PipelineKindParachain    PipelineKind = "parachain"
	PipelineKindMessages     PipelineKind = "messages"
	PipelineKindEquivocation PipelineKind = "equivocation"
)

func (k PipelineKind) Validate() error {
	switch k {
	case PipelineKindFinality, PipelineKindParachain, PipelineKindMessages, PipelineKindEquivocation:
		return nil
	default:
		return errors.Newf("unknown pipeline kind '%v'", k)
	}
}

// PipelineTiming holds the intervals of a pipeline's loops.
type PipelineTiming struct {
	RelayInterval     time.Duration `json:"relay_interval" yaml:"relay_interval"`
	TxTimeout         time.Duration `json:"tx_timeout" yaml:"tx_timeout"`
	TxPollInterval    time.Duration `json:"tx_poll_interval" yaml:"tx_poll_interval"`
	GuardPollInterval time.Duration `json:"guard_poll_interval" yaml:"guard_poll_interval"`
	RetryDelay        time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

func DefaultPipelineTiming() PipelineTiming {
	return PipelineTiming{
		RelayInterval:     3 * time.Second,
		TxTimeout:         5 * time.Minute,
		TxPollInterval:    6 * time.Second,
		GuardPollInterval: time.Minute,
		RetryDelay:        defaultRetryDelay,
	}
}

// WithDefaults fills the zero intervals with the defaults.
func (t PipelineTiming) WithDefaults() PipelineTiming {
	d := DefaultPipelineTiming()
	if t.RelayInterval <= 0 {
		t.RelayInterval = d.RelayInterval
	}
	if t.TxTimeout <= 0 {
		t.TxTimeout = d.TxTimeout
	}
	if t.TxPollInterval <= 0 {
		t.TxPollInterval = d.TxPollInterval
	}
	if t.GuardPollInterval <= 0 {
		t.GuardPollInterval = d.GuardPollInterval
	}
	if t.RetryDelay <= 0 {
		t.RetryDelay = d.RetryDelay
	}
	return t
}

// PipelineContext is the identity of a pipeline passed to everything it runs.
type PipelineContext struct {
	Name          string
	Kind          PipelineKind
	SourceChainID string
	TargetChainID string
	Timing        PipelineTiming
	Logger        *log.RelayLogger
	Attributes    []attribute.KeyValue
}

func NewPipelineContext(name string, kind PipelineKind, srcChainID, dstChainID string, timing PipelineTiming) *PipelineContext {
	return &PipelineContext{
		Name:          name,
		Kind:          kind,
		SourceChainID: srcChainID,
		TargetChainID: dstChainID,
		Timing:        timing.WithDefaults(),
		Logger:        log.GetLogger().WithPipeline(name, string(kind)).WithChain(srcChainID, dstChainID),
		Attributes: []attribute.KeyValue{
			AttributeKeyPipeline.String(name),
			AttributeKeyPipelineKind.String(string(kind)),
		},
	}
}

// attrs returns the pipeline attributes followed by extra without sharing the backing array.
func (pc *PipelineContext) attrs(extra ...attribute.KeyValue) []attribute.KeyValue {
	return appendAttributes(pc.Attributes, extra...)
}

func appendAttributes(base []attribute.KeyValue, extra ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Pipeline is a relay loop run by the service.
type Pipeline interface {
	Context() *PipelineContext
	// Run relays until ctx is done or a fatal error occurs.
	Run(ctx context.Context) error
	// RunOnce performs a single cycle of every loop of the pipeline.
	RunOnce(ctx context.Context) error
	Status() PipelineStatus
}

// RelayState is the state of a relay loop.
type RelayState int32

const (
	RelayStateIdle RelayState = iota
	RelayStateRangeSelected
	RelayStateStrategyEvaluating
	RelayStateSkipped
	RelayStateBuildingCall
	RelayStateSubmitting
	RelayStateTracking
	RelayStateConfirmed
	RelayStateLost
	RelayStateInvalid
	RelayStateStopped
)

func (s RelayState) String() string {
	switch s {
	case RelayStateIdle:
		return "idle"
	case RelayStateRangeSelected:
		return "range_selected"
	case RelayStateStrategyEvaluating:
		return "strategy_evaluating"
	case RelayStateSkipped:
		return "skipped"
	case RelayStateBuildingCall:
		return "building_call"
	case RelayStateSubmitting:
		return "submitting"
	case RelayStateTracking:
		return "tracking"
	case RelayStateConfirmed:
		return "confirmed"
	case RelayStateLost:
		return "lost"
	case RelayStateInvalid:
		return "invalid"
	case RelayStateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// LoopStatus is a snapshot of one relay loop.
type LoopStatus struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Submissions uint64 `json:"submissions"`
	Finalized   uint64 `json:"finalized"`
	LastError   string `json:"last_error,omitempty"`
}

type GuardStatus struct {
	Name    string `json:"name"`
	Verdict string `json:"verdict"`
}

// PipelineStatus is a snapshot of a pipeline, safe to take from any goroutine.
type PipelineStatus struct {
	Name   string        `json:"name"`
	Kind   PipelineKind  `json:"kind"`
	Loops  []LoopStatus  `json:"loops"`
	Guards []GuardStatus `json:"guards"`
}

// Healthy reports whether no loop of the pipeline stopped and no guard aborted.
func (s PipelineStatus) Healthy() bool {
	for _, l := range s.Loops {
		if l.State == RelayStateStopped.String() {
			return false
		}
	}
	for _, g := range s.Guards {
		if g.Verdict != VerdictContinue().String() {
			return false
		}
	}
	return true
}

func guardStatuses(sets ...*GuardSet) []GuardStatus {
	var statuses []GuardStatus
	for _, set := range sets {
		for _, c := range set.Cells() {
			statuses = append(statuses, GuardStatus{Name: fmt.Sprintf("%s@%s", c.name, c.chainID), Verdict: c.Verdict().String()})
		}
	}
	return statuses
}

// loop is the state shared by the relay loops: it submits one transaction at
// a time to chain and tracks it to a terminal status.
type loop struct {
	pc       *PipelineContext
	name     string
	chain    Chain
	guards   *GuardSet
	logger   *log.RelayLogger
	attrs    []attribute.KeyValue
	state    atomic.Int32
	inFlight atomic.Bool

	submissions atomic.Uint64
	finalized   atomic.Uint64
	lastErr     atomic.String
}

func newLoop(pc *PipelineContext, name string, chain Chain, guards *GuardSet) *loop {
	return &loop{
		pc:     pc,
		name:   name,
		chain:  chain,
		guards: guards,
		logger: pc.Logger.With("loop", name),
		attrs:  pc.attrs(AttributeKeyRace.String(name), AttributeKeyChainID.String(chain.ChainID())),
	}
}

func (l *loop) State() RelayState {
	return RelayState(l.state.Load())
}

func (l *loop) setState(s RelayState) {
	l.state.Store(int32(s))
	telemetry.RaceStateGauge.Set(int64(s), l.attrs...)
}

// InFlight reports whether a transaction of the loop is being submitted or tracked.
func (l *loop) InFlight() bool {
	return l.inFlight.Load()
}

func (l *loop) status() LoopStatus {
	return LoopStatus{
		Name:        l.name,
		State:       l.State().String(),
		Submissions: l.submissions.Load(),
		Finalized:   l.finalized.Load(),
		LastError:   l.lastErr.Load(),
	}
}

func (l *loop) onRetry(ctx context.Context, what string) retry.OnRetryFunc {
	return func(n uint, err error) {
		l.logger.InfoContext(ctx,
			fmt.Sprintf("retrying to %s", what),
			"try", n+1,
			"try_limit", rtyAttNum,
			"error", err.Error(),
		)
	}
}

// do runs fn with the retry policy of connection errors.
func (l *loop) do(ctx context.Context, what string, fn func() error) error {
	return retry.Do(fn, retryOptions(ctx, l.pc.Timing.RetryDelay, l.onRetry(ctx, what))...)
}

// submit submits call to the loop's chain and waits for its terminal status.
// Benign rejections at submission are returned as an invalid status, not as an error.
func (l *loop) submit(ctx context.Context, call Call) (TrackedTransactionStatus, error) {
	if err := l.guards.Check(); err != nil {
		return TrackedTransactionStatus{}, err
	}
	if !l.inFlight.CompareAndSwap(false, true) {
		return TrackedTransactionStatus{}, errors.Newf("%s loop already has a transaction in flight", l.name)
	}
	defer l.inFlight.Store(false)

	l.setState(RelayStateSubmitting)
	var handle TxHandle
	err := l.do(ctx, "submit transaction", func() error {
		var err error
		handle, err = l.chain.SubmitTx(ctx, call)
		return classifyChainError(l.chain, err)
	})
	if err != nil {
		if IsBenignRejection(err) {
			l.setState(RelayStateIdle)
			l.logger.InfoContext(ctx, "submission rejected as stale", "call", string(call.CallKind()), "reason", err.Error())
			return TrackedTransactionStatus{Kind: TxStatusInvalid, Reason: err}, nil
		}
		return TrackedTransactionStatus{}, errors.Wrapf(err, "failed to submit %s", call.CallKind())
	}
	l.submissions.Inc()
	telemetry.SubmittedTxCounter.Add(ctx, 1, api.WithAttributes(appendAttributes(l.attrs, AttributeKeyCall.String(string(call.CallKind())))...))
	l.logger.InfoContext(ctx, "transaction submitted", "tx", handle.String())

	l.setState(RelayStateTracking)
	status, err := NewTransactionTracker(l.chain, handle, l.pc.Timing.TxTimeout, l.pc.Timing.TxPollInterval).
		WithLogger(l.logger).
		WithRetryDelay(l.pc.Timing.RetryDelay).
		Wait(ctx)
	if err != nil {
		return status, err
	}
	switch status.Kind {
	case TxStatusFinalized:
		l.finalized.Inc()
		l.setState(RelayStateConfirmed)
		l.logger.InfoContext(ctx, "transaction finalized", "tx", handle.String(), "block", status.Header.String())
	case TxStatusLost:
		l.setState(RelayStateLost)
		l.logger.WarnContext(ctx, "transaction lost", "tx", handle.String())
	case TxStatusInvalid:
		l.setState(RelayStateInvalid)
		if IsBenignRejection(status.Reason) {
			l.logger.InfoContext(ctx, "transaction rejected as stale", "tx", handle.String(), "reason", status.Reason.Error())
		} else {
			l.logger.WarnErrorContext(ctx, "transaction failed", status.Reason, "tx", handle.String())
		}
	}
	return status, nil
}

// run calls step every relay interval until ctx is done or step returns a fatal error.
// Other errors are logged by step and recorded in the status.
func (l *loop) run(ctx context.Context, step func(context.Context) error) error {
	defer l.setState(RelayStateStopped)
	for {
		if err := step(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.lastErr.Store(err.Error())
			if IsFatal(err) {
				l.logger.ErrorContext(ctx, "relay loop stopped", err)
				return err
			}
		}
		if err := wait(ctx, l.pc.Timing.RelayInterval); err != nil {
			return err
		}
	}
}
