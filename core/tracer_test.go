package core

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const corePackage = "github.com/hyperledger-labs/yui-bridge-relayer/core"

func TestGetPackageName(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{
			name: "proof sync",
			v:    &ProofSync{},
			want: corePackage,
		},
		{
			name: "sync target",
			v:    SyncTarget(&ParachainSync{}),
			want: corePackage,
		},
		{
			name: "pipeline",
			v:    Pipeline(&MessageLane{}),
			want: corePackage,
		},
		{
			name: "value",
			v:    MessageRange{},
			want: corePackage,
		},
		{
			name: "other package",
			v:    &log.RelayLogger{},
			want: "github.com/hyperledger-labs/yui-bridge-relayer/log",
		},
		{
			name: "interface with pointer",
			v:    tracer,
			want: "go.opentelemetry.io/otel/internal/global",
		},
		{
			name: "nil",
			v:    nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPackageName(tt.v); got != tt.want {
				t.Errorf("getPackageName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithPackage(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "ProofSync.Step", withPackage(&ProofSync{}))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	var pkg string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == AttributeKeyPackage {
			pkg = kv.Value.AsString()
		}
	}
	assert.Equal(t, corePackage, pkg)
}
