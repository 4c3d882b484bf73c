package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/golang/groupcache/lru"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	api "go.opentelemetry.io/otel/metric"
)

const (
	equivocationScanMarkName = "equivocation/scan_from"

	DefaultEquivocationCacheSize = 1024
)

// EquivocationsFinder compares the votes of the finality proofs the target
// imported with the proofs the source chain produced.
type EquivocationsFinder struct {
	mu    sync.Mutex
	cache *lru.Cache // header number -> []FinalityProof
}

func NewEquivocationsFinder(cacheSize int) *EquivocationsFinder {
	if cacheSize <= 0 {
		cacheSize = DefaultEquivocationCacheSize
	}
	return &EquivocationsFinder{cache: lru.New(cacheSize)}
}

// SourceProofs returns the finality proofs of the source headers numbered from..to.
// Proofs of a header are queried once.
func (f *EquivocationsFinder) SourceProofs(ctx context.Context, src SourceClient, from, to uint64) ([]FinalityProof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	first := from
	for first <= to {
		if _, ok := f.cache.Get(first); !ok {
			break
		}
		first++
	}
	if first <= to {
		proofs, err := src.FinalityProofsInPeriod(ctx, first, to)
		if err != nil {
			return nil, errors.Wrapf(classifyChainError(src, err), "failed to query finality proofs of headers %d..%d", first, to)
		}
		byNumber := make(map[uint64][]FinalityProof)
		for _, p := range proofs {
			byNumber[p.Header.Number] = append(byNumber[p.Header.Number], p)
		}
		for n := first; n <= to; n++ {
			f.cache.Add(n, byNumber[n])
		}
	}

	var out []FinalityProof
	for n := from; n <= to; n++ {
		if v, ok := f.cache.Get(n); ok {
			out = append(out, v.([]FinalityProof)...)
		}
	}
	return out, nil
}

// Find returns the equivocations between synced, verified with vctx, and the source proofs.
// Only votes of the authority set synced was verified with are compared.
func (f *EquivocationsFinder) Find(vctx FinalityVerificationContext, synced FinalityProof, sourceProofs []FinalityProof) []EquivocationProof {
	set := vctx.AuthoritySet
	if synced.SetID != set.ID {
		return nil
	}

	type voteKey struct {
		validator string
		round     uint64
	}
	votes := make(map[voteKey]Vote, len(synced.Votes))
	for _, v := range synced.Votes {
		if v.SetID == set.ID && set.Contains(v.Validator) {
			votes[voteKey{v.Validator, v.Round}] = v
		}
	}

	var found []EquivocationProof
	seen := make(map[string]struct{})
	for _, p := range sourceProofs {
		if p.SetID != set.ID {
			continue
		}
		for _, v := range p.Votes {
			if v.SetID != set.ID {
				continue
			}
			first, ok := votes[voteKey{v.Validator, v.Round}]
			if !ok || first.Target.Equal(v.Target) {
				continue
			}
			proof := EquivocationProof{
				Offender: v.Validator,
				Round:    v.Round,
				SetID:    set.ID,
				First:    first,
				Second:   v,
			}
			if _, ok := seen[proof.Key()]; ok {
				continue
			}
			seen[proof.Key()] = struct{}{}
			found = append(found, proof)
		}
	}
	return found
}

// EquivocationSync reports to the source chain the validators that signed a
// header imported by the target which conflicts with the source's own finality.
type EquivocationSync struct {
	pc       *PipelineContext
	src      SourceClient
	dst      TargetClient
	finder   *EquivocationsFinder
	journal  Journal
	scanFrom uint64
}

var _ SyncTarget = (*EquivocationSync)(nil)

type equivocationFact struct {
	proof EquivocationProof
}

func (f equivocationFact) String() string {
	return fmt.Sprintf("equivocation of %s in round %d of set %d", f.proof.Offender, f.proof.Round, f.proof.SetID)
}

func NewEquivocationSync(pc *PipelineContext, src SourceClient, dst TargetClient, finder *EquivocationsFinder, journal Journal) (*EquivocationSync, error) {
	if journal == nil {
		return nil, errors.New("equivocation sync requires a journal")
	}
	from, err := journal.GetMark(equivocationScanMarkName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load the equivocation scan mark")
	}
	if from == 0 {
		from = 1
	}
	return &EquivocationSync{pc: pc, src: src, dst: dst, finder: finder, journal: journal, scanFrom: from}, nil
}

func (es *EquivocationSync) isSyncTarget() {}

// SubmitChain is the source: the offence is punished on the chain whose validators committed it.
func (es *EquivocationSync) SubmitChain() Chain {
	return es.src
}

func (es *EquivocationSync) NewFacts(ctx context.Context) ([]Fact, error) {
	synced, err := es.dst.SyncedHeadersWithContext(ctx, es.scanFrom)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(es.dst, err), "failed to query synced headers on %s", es.dst.ChainID())
	}
	if len(synced) == 0 {
		return nil, nil
	}
	to := synced[len(synced)-1].Header.Number
	sourceProofs, err := es.finder.SourceProofs(ctx, es.src, es.scanFrom, to)
	if err != nil {
		return nil, err
	}

	var facts []Fact
	seen := make(map[string]struct{})
	for _, sh := range synced {
		for _, proof := range es.finder.Find(sh.Context, sh.Proof, sourceProofs) {
			if _, ok := seen[proof.Key()]; ok {
				continue
			}
			seen[proof.Key()] = struct{}{}
			reported, err := es.journal.IsReported(proof.Key())
			if err != nil {
				return nil, errors.Wrapf(err, "failed to look up %s", proof.Key())
			}
			if !reported {
				facts = append(facts, equivocationFact{proof: proof})
			}
		}
	}

	// keep scanning the window until every offence in it is reported
	if len(facts) == 0 {
		es.scanFrom = to + 1
		if err := es.journal.SetMark(equivocationScanMarkName, es.scanFrom); err != nil {
			return nil, errors.Wrap(err, "failed to record the equivocation scan mark")
		}
	}
	return facts, nil
}

func (es *EquivocationSync) BuildCall(ctx context.Context, fact Fact) (Call, error) {
	return &ReportEquivocationCall{Proof: fact.(equivocationFact).proof}, nil
}

func (es *EquivocationSync) OnRelayed(ctx context.Context, fact Fact) error {
	proof := fact.(equivocationFact).proof
	if err := es.journal.MarkReported(proof.Key()); err != nil {
		return errors.Wrapf(err, "failed to record %s", proof.Key())
	}
	telemetry.EquivocationReportCounter.Add(ctx, 1, api.WithAttributes(es.pc.attrs()...))
	return nil
}
