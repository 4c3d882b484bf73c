package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeProvider []core.PipelineStatus

func (p fakeProvider) Statuses() []core.PipelineStatus {
	return p
}

func healthy(name string) core.PipelineStatus {
	return core.PipelineStatus{
		Name:   name,
		Kind:   core.PipelineKindFinality,
		Loops:  []core.LoopStatus{{Name: "finality", State: core.RelayStateIdle.String()}},
		Guards: []core.GuardStatus{{Name: "spec_version", Verdict: core.VerdictContinue().String()}},
	}
}

func stopped(name string) core.PipelineStatus {
	s := healthy(name)
	s.Loops[0].State = core.RelayStateStopped.String()
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewStatusServer(fakeProvider{healthy("a"), healthy("b")}, "", "")
	rec := get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	srv = NewStatusServer(fakeProvider{healthy("a"), stopped("b")}, "", "")
	rec = get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"b"}, resp.Unhealthy)
}

func TestStatusEndpoint(t *testing.T) {
	srv := NewStatusServer(fakeProvider{healthy("a")}, "", "")
	rec := get(t, srv.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var statuses []core.PipelineStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Equal(t, []core.PipelineStatus(fakeProvider{healthy("a")}), statuses)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewStatusServer(fakeProvider{}, "", "")
	rec := get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGRPCHealth(t *testing.T) {
	srv := NewStatusServer(fakeProvider{healthy("a"), stopped("b")}, "", "")
	srv.UpdateHealth()

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := srv.HealthServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.Status
	}
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check("a"))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check("b"))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))

	_, err := srv.HealthServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: "unknown"})
	require.Error(t, err)
}

func TestStartStops(t *testing.T) {
	srv := NewStatusServer(fakeProvider{healthy("a")}, "127.0.0.1:0", "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
