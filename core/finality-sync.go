package core

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const finalityMarkName = "finality/last_submitted_header"

// FinalitySyncCfg configures which headers are relayed.
type FinalitySyncCfg struct {
	// OnlyMandatory relays only the headers enacting an authority set change,
	// unless the target lags behind the source by MaxLag headers or more.
	OnlyMandatory bool   `json:"only_mandatory_headers" yaml:"only_mandatory_headers"`
	MaxLag        uint64 `json:"max_lag,omitempty" yaml:"max_lag,omitempty"`
}

// FinalitySync relays finalized source headers to the target's light client.
type FinalitySync struct {
	pc      *PipelineContext
	src     SourceClient
	dst     TargetClient
	cfg     FinalitySyncCfg
	journal Journal
}

var _ SyncTarget = (*FinalitySync)(nil)

type headerFact struct {
	number    uint64
	mandatory bool
}

func (f headerFact) String() string {
	if f.mandatory {
		return fmt.Sprintf("mandatory header #%d", f.number)
	}
	return fmt.Sprintf("header #%d", f.number)
}

// NewFinalitySync creates the finality relay of src headers to dst. journal may be nil.
func NewFinalitySync(pc *PipelineContext, src SourceClient, dst TargetClient, cfg FinalitySyncCfg, journal Journal) *FinalitySync {
	return &FinalitySync{pc: pc, src: src, dst: dst, cfg: cfg, journal: journal}
}

func (fs *FinalitySync) isSyncTarget() {}

func (fs *FinalitySync) SubmitChain() Chain {
	return fs.dst
}

func (fs *FinalitySync) NewFacts(ctx context.Context) ([]Fact, error) {
	best, err := fs.src.BestFinalizedHeaderID(ctx)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(fs.src, err), "failed to query best finalized header on %s", fs.src.ChainID())
	}
	synced, err := fs.dst.SyncedHeaderNumber(ctx)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(fs.dst, err), "failed to query synced header number on %s", fs.dst.ChainID())
	}
	if best.Number <= synced {
		return nil, nil
	}

	// the target cannot skip an authority set change
	mandatory, err := fs.src.MandatoryHeadersInRange(ctx, synced+1, best.Number)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(fs.src, err), "failed to query mandatory headers on %s", fs.src.ChainID())
	}
	if len(mandatory) > 0 {
		return []Fact{headerFact{number: mandatory[0], mandatory: true}}, nil
	}
	if fs.cfg.OnlyMandatory && (fs.cfg.MaxLag == 0 || best.Number-synced < fs.cfg.MaxLag) {
		return nil, nil
	}
	return []Fact{headerFact{number: best.Number}}, nil
}

func (fs *FinalitySync) BuildCall(ctx context.Context, fact Fact) (Call, error) {
	f := fact.(headerFact)
	header, proof, err := fs.src.HeaderAndFinalityProof(ctx, f.number)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(fs.src, err), "failed to query finality proof of header #%d", f.number)
	}
	if proof == nil || !bytes.Equal(proof.Header.Hash, header.Hash) {
		return nil, errors.Newf("finality proof of header %s is missing or does not match", header)
	}
	return &SubmitFinalityProofCall{Proof: *proof}, nil
}

func (fs *FinalitySync) OnRelayed(ctx context.Context, fact Fact) error {
	f := fact.(headerFact)
	telemetry.ProcessedHeaderGauge.Set(int64(f.number), fs.pc.attrs(attribute.String("direction", "target"))...)
	if fs.journal != nil {
		if err := fs.journal.SetMark(finalityMarkName, f.number); err != nil {
			return errors.Wrap(err, "failed to record the last submitted header")
		}
	}
	return nil
}
