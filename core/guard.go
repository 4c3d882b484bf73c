package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	retry "github.com/avast/retry-go"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	api "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// GuardedChain is what relay guards observe.
type GuardedChain interface {
	ChainID() string
	IsConnectionError(err error) bool
	RuntimeVersion(ctx context.Context) (RuntimeVersion, error)
	AccountBalance(ctx context.Context, account string) (math.Int, error)
}

var _ GuardedChain = (Chain)(nil)

// GuardVerdict is the result of a guard check.
type GuardVerdict struct {
	abort  bool
	reason string
}

func VerdictContinue() GuardVerdict {
	return GuardVerdict{}
}

func VerdictAbort(reason string) GuardVerdict {
	return GuardVerdict{abort: true, reason: reason}
}

func (v GuardVerdict) IsAbort() bool {
	return v.abort
}

func (v GuardVerdict) Reason() string {
	return v.reason
}

func (v GuardVerdict) String() string {
	if v.abort {
		return fmt.Sprintf("abort: %s", v.reason)
	}
	return "continue"
}

// GuardCondition is one of SpecVersionGuard and BalanceGuard.
// A condition is only used by the goroutine of the guard it was started with.
type GuardCondition interface {
	Name() string
	Check(ctx context.Context, chain GuardedChain, now time.Time) (GuardVerdict, error)

	isGuardCondition()
}

// SpecVersionGuard aborts when the runtime spec version differs from Expected.
// A zero Expected is replaced by the version observed by the first check.
type SpecVersionGuard struct {
	Expected uint32
}

func NewSpecVersionGuard(expected uint32) *SpecVersionGuard {
	return &SpecVersionGuard{Expected: expected}
}

func (g *SpecVersionGuard) Name() string { return "spec_version" }

func (g *SpecVersionGuard) isGuardCondition() {}

func (g *SpecVersionGuard) Check(ctx context.Context, chain GuardedChain, _ time.Time) (GuardVerdict, error) {
	version, err := chain.RuntimeVersion(ctx)
	if err != nil {
		return VerdictContinue(), errors.Wrap(err, "failed to query runtime version")
	}
	if g.Expected == 0 {
		g.Expected = version.SpecVersion
		return VerdictContinue(), nil
	}
	if version.SpecVersion != g.Expected {
		return VerdictAbort(fmt.Sprintf("runtime of %s upgraded: spec version %d, expected %d",
			chain.ChainID(), version.SpecVersion, g.Expected)), nil
	}
	return VerdictContinue(), nil
}

type balanceSample struct {
	at      time.Time
	balance math.Int
}

// BalanceGuard aborts when the balance of Account is lower than the highest
// balance observed within the last Window by more than MaxDrop.
type BalanceGuard struct {
	Account string
	MaxDrop math.Int
	Window  time.Duration

	samples []balanceSample
}

func NewBalanceGuard(account string, maxDrop math.Int, window time.Duration) *BalanceGuard {
	return &BalanceGuard{Account: account, MaxDrop: maxDrop, Window: window}
}

func (g *BalanceGuard) Name() string { return "balance" }

func (g *BalanceGuard) isGuardCondition() {}

func (g *BalanceGuard) Check(ctx context.Context, chain GuardedChain, now time.Time) (GuardVerdict, error) {
	balance, err := chain.AccountBalance(ctx, g.Account)
	if err != nil {
		return VerdictContinue(), errors.Wrapf(err, "failed to query balance of %s", g.Account)
	}

	// drop the samples that left the window
	i := 0
	for ; i < len(g.samples); i++ {
		if now.Sub(g.samples[i].at) <= g.Window {
			break
		}
	}
	g.samples = append(g.samples[i:], balanceSample{at: now, balance: balance})

	highest := balance
	for _, s := range g.samples {
		if s.balance.GT(highest) {
			highest = s.balance
		}
	}
	if drop := highest.Sub(balance); drop.GT(g.MaxDrop) {
		return VerdictAbort(fmt.Sprintf("balance of %s on %s dropped by %s within %s (max %s)",
			g.Account, chain.ChainID(), drop, g.Window, g.MaxDrop)), nil
	}
	return VerdictContinue(), nil
}

// VerdictCell holds the verdict of one guard. It is written only by the guard
// goroutine and read by relay loops. Once aborted it never reverts.
type VerdictCell struct {
	name    string
	chainID string
	aborted atomic.Bool
	reason  atomic.String
	done    chan struct{}
	once    sync.Once
}

func newVerdictCell(name, chainID string) *VerdictCell {
	return &VerdictCell{name: name, chainID: chainID, done: make(chan struct{})}
}

func (c *VerdictCell) Name() string {
	return c.name
}

func (c *VerdictCell) Verdict() GuardVerdict {
	if c.aborted.Load() {
		return VerdictAbort(c.reason.Load())
	}
	return VerdictContinue()
}

// Done is closed when the guard aborts.
func (c *VerdictCell) Done() <-chan struct{} {
	return c.done
}

func (c *VerdictCell) abort(reason string) {
	c.once.Do(func() {
		c.reason.Store(reason)
		c.aborted.Store(true)
		close(c.done)
	})
}

// StartGuard polls condition on chain every pollInterval until it aborts or ctx is done.
// Query failures are retried and logged but never abort the guard.
func StartGuard(ctx context.Context, chain GuardedChain, condition GuardCondition, pollInterval time.Duration) *VerdictCell {
	cell := newVerdictCell(condition.Name(), chain.ChainID())
	go runGuard(ctx, chain, condition, pollInterval, cell)
	return cell
}

func runGuard(ctx context.Context, chain GuardedChain, condition GuardCondition, pollInterval time.Duration, cell *VerdictCell) {
	logger := log.GetLogger().WithModule("core.guard").With("guard", condition.Name(), "chain_id", chain.ChainID())
	for {
		var verdict GuardVerdict
		err := retry.Do(func() error {
			var err error
			verdict, err = condition.Check(ctx, chain, time.Now())
			return err
		}, rtyAtt, rtyDel, rtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx,
				"retrying guard check",
				"try", n+1,
				"try_limit", rtyAttNum,
				"error", err.Error(),
			)
		}))
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.WarnContext(ctx, "guard check failed", "error", err.Error())
		} else if verdict.IsAbort() {
			cell.abort(verdict.Reason())
			telemetry.GuardAbortCounter.Add(ctx, 1, api.WithAttributes(
				AttributeKeyGuard.String(condition.Name()),
				AttributeKeyChainID.String(chain.ChainID()),
			))
			logger.ErrorContext(ctx, "relay guard aborted", errors.Wrap(ErrGuardAborted, verdict.Reason()))
			return
		}

		if err := wait(ctx, pollInterval); err != nil {
			return
		}
	}
}

// GuardSet aggregates the guards protecting one submission chain. A nil set never aborts.
type GuardSet struct {
	cells []*VerdictCell
}

func NewGuardSet(cells ...*VerdictCell) *GuardSet {
	return &GuardSet{cells: cells}
}

// StartGuards starts one guard per condition and returns their set.
func StartGuards(ctx context.Context, chain GuardedChain, conditions []GuardCondition, pollInterval time.Duration) *GuardSet {
	set := &GuardSet{}
	for _, c := range conditions {
		set.cells = append(set.cells, StartGuard(ctx, chain, c, pollInterval))
	}
	return set
}

// Check returns an error wrapping ErrGuardAborted if any guard aborted.
func (s *GuardSet) Check() error {
	if s == nil {
		return nil
	}
	for _, c := range s.cells {
		if v := c.Verdict(); v.IsAbort() {
			return errors.Wrapf(ErrGuardAborted, "%s guard on %s: %s", c.name, c.chainID, v.Reason())
		}
	}
	return nil
}

func (s *GuardSet) Cells() []*VerdictCell {
	if s == nil {
		return nil
	}
	return s.cells
}

// GuardCfg configures the guards of one chain a pipeline submits to.
type GuardCfg struct {
	SpecVersion *SpecVersionGuardCfg `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	Balance     *BalanceGuardCfg     `json:"balance,omitempty" yaml:"balance,omitempty"`
}

type SpecVersionGuardCfg struct {
	// Expected is the spec version relaying is allowed on. Zero means the version observed at start.
	Expected uint32 `json:"expected" yaml:"expected"`
}

type BalanceGuardCfg struct {
	// Account defaults to the submitting account.
	Account string        `json:"account,omitempty" yaml:"account,omitempty"`
	MaxDrop string        `json:"max_drop" yaml:"max_drop"`
	Window  time.Duration `json:"window" yaml:"window"`
}

func (cfg GuardCfg) Validate() error {
	if b := cfg.Balance; b != nil {
		if _, ok := math.NewIntFromString(b.MaxDrop); !ok {
			return errors.Newf("invalid max_drop of balance guard: %q", b.MaxDrop)
		}
		if b.Window <= 0 {
			return errors.New("window of balance guard must be positive")
		}
	}
	return nil
}

// Portable returns the guards without the values that only hold on one chain:
// the expected spec version is observed at start and the balance guard watches
// the submitting account.
func (cfg GuardCfg) Portable() GuardCfg {
	var out GuardCfg
	if cfg.SpecVersion != nil {
		out.SpecVersion = &SpecVersionGuardCfg{}
	}
	if b := cfg.Balance; b != nil {
		out.Balance = &BalanceGuardCfg{MaxDrop: b.MaxDrop, Window: b.Window}
	}
	return out
}

// Conditions builds the configured guard conditions. defaultAccount is guarded
// when the balance guard does not name an account.
func (cfg GuardCfg) Conditions(defaultAccount string) ([]GuardCondition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var conds []GuardCondition
	if cfg.SpecVersion != nil {
		conds = append(conds, NewSpecVersionGuard(cfg.SpecVersion.Expected))
	}
	if b := cfg.Balance; b != nil {
		account := b.Account
		if account == "" {
			account = defaultAccount
		}
		maxDrop, _ := math.NewIntFromString(b.MaxDrop)
		conds = append(conds, NewBalanceGuard(account, maxDrop, b.Window))
	}
	return conds, nil
}
