package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockPipeline(ctrl *gomock.Controller, name string, kind core.PipelineKind) *core.MockPipeline {
	p := core.NewMockPipeline(ctrl)
	pc := core.NewPipelineContext(name, kind, "src", "dst", core.PipelineTiming{})
	p.EXPECT().Context().Return(pc).AnyTimes()
	p.EXPECT().Status().Return(core.PipelineStatus{
		Name:  name,
		Kind:  kind,
		Loops: []core.LoopStatus{{Name: string(kind), State: core.RelayStateIdle.String()}},
	}).AnyTimes()
	return p
}

func TestServiceStartKeepsOtherPipelinesRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := newMockPipeline(ctrl, "failing", core.PipelineKindFinality)
	healthy := newMockPipeline(ctrl, "healthy", core.PipelineKindMessages)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	failing.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		defer close(stopped)
		return errors.Wrap(core.ErrGuardAborted, "spec_version guard")
	})
	healthy.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		<-stopped
		// still running after the other pipeline failed
		select {
		case <-ctx.Done():
			return errors.New("context cancelled by another pipeline")
		case <-time.After(20 * time.Millisecond):
		}
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	err := core.StartService(ctx, failing, healthy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGuardAborted))
	assert.Contains(t, err.Error(), "pipeline failing")
	assert.NotContains(t, err.Error(), "healthy")
}

func TestServiceStartWithoutPipelines(t *testing.T) {
	assert.Error(t, core.NewRelayService().Start(context.Background()))
}

func TestServiceRunOnce(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	first := newMockPipeline(ctrl, "first", core.PipelineKindFinality)
	second := newMockPipeline(ctrl, "second", core.PipelineKindParachain)
	third := newMockPipeline(ctrl, "third", core.PipelineKindMessages)

	gomock.InOrder(
		first.EXPECT().RunOnce(gomock.Any()).Return(nil),
		second.EXPECT().RunOnce(gomock.Any()).Return(errors.New("node unavailable")),
		third.EXPECT().RunOnce(gomock.Any()).Return(nil),
	)

	srv := core.NewRelayService(first, second, third)
	err := srv.RunOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline second")
	assert.Len(t, srv.Pipelines(), 3)

	statuses := srv.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "first", statuses[0].Name)
	assert.Equal(t, core.PipelineKindMessages, statuses[2].Kind)
	for _, s := range statuses {
		assert.True(t, s.Healthy())
	}
}

func TestPipelineStatusHealthy(t *testing.T) {
	s := core.PipelineStatus{
		Loops:  []core.LoopStatus{{Name: "delivery", State: core.RelayStateTracking.String()}},
		Guards: []core.GuardStatus{{Name: "balance@b", Verdict: core.VerdictContinue().String()}},
	}
	assert.True(t, s.Healthy())

	s.Guards = append(s.Guards, core.GuardStatus{Name: "spec_version@b", Verdict: core.VerdictAbort("upgraded").String()})
	assert.False(t, s.Healthy())

	s = core.PipelineStatus{Loops: []core.LoopStatus{{Name: "finality", State: core.RelayStateStopped.String()}}}
	assert.False(t, s.Healthy())
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     core.PipelineConfig
		wantErr bool
	}{
		{"finality", core.PipelineConfig{Name: "f", Kind: core.PipelineKindFinality, Src: "a", Dst: "b"}, false},
		{"messages", core.PipelineConfig{Name: "m", Kind: core.PipelineKindMessages, Src: "a", Dst: "b", Lane: testLane}, false},
		{"messages without lane", core.PipelineConfig{Name: "m", Kind: core.PipelineKindMessages, Src: "a", Dst: "b"}, true},
		{"unknown strategy", core.PipelineConfig{Name: "m", Kind: core.PipelineKindMessages, Src: "a", Dst: "b", Lane: testLane, Strategy: &core.StrategyCfg{Type: "greedy"}}, true},
		{"parachain without para id", core.PipelineConfig{Name: "p", Kind: core.PipelineKindParachain, Src: "a", Dst: "b"}, true},
		{"same chains", core.PipelineConfig{Name: "f", Kind: core.PipelineKindFinality, Src: "a", Dst: "a"}, true},
		{"unknown kind", core.PipelineConfig{Name: "x", Kind: "bridge", Src: "a", Dst: "b"}, true},
		{"confirmation guards outside a lane", core.PipelineConfig{Name: "f", Kind: core.PipelineKindFinality, Src: "a", Dst: "b", ConfirmationGuards: &core.GuardCfg{}}, true},
		{"invalid confirmation guards", core.PipelineConfig{Name: "m", Kind: core.PipelineKindMessages, Src: "a", Dst: "b", Lane: testLane, ConfirmationGuards: &core.GuardCfg{Balance: &core.BalanceGuardCfg{MaxDrop: "lots", Window: time.Hour}}}, true},
		{"no name", core.PipelineConfig{Kind: core.PipelineKindFinality, Src: "a", Dst: "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipelineTimingDefaults(t *testing.T) {
	timing := core.PipelineTiming{RelayInterval: time.Second}.WithDefaults()
	def := core.DefaultPipelineTiming()
	assert.Equal(t, time.Second, timing.RelayInterval)
	assert.Equal(t, def.TxTimeout, timing.TxTimeout)
	assert.Equal(t, def.GuardPollInterval, timing.GuardPollInterval)
	assert.Equal(t, "stopped", core.RelayStateStopped.String())
}
