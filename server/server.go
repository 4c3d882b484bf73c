package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthRefreshInterval = time.Second
	shutdownTimeout       = 5 * time.Second
)

// StatusProvider reports the status of the running pipelines.
type StatusProvider interface {
	Statuses() []core.PipelineStatus
}

// StatusServer exposes the pipeline statuses over HTTP and the gRPC health protocol.
type StatusServer struct {
	provider StatusProvider
	httpAddr string
	grpcAddr string
	health   *health.Server
	logger   *log.RelayLogger
}

// NewStatusServer returns a server. An empty address disables the corresponding endpoint.
func NewStatusServer(provider StatusProvider, httpAddr, grpcAddr string) *StatusServer {
	return &StatusServer{
		provider: provider,
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		health:   health.NewServer(),
		logger:   log.GetLogger().WithModule("server"),
	}
}

type healthResponse struct {
	Status    string   `json:"status"`
	Unhealthy []string `json:"unhealthy,omitempty"`
}

// Handler returns the HTTP handler serving /health, /status and /metrics.
func (srv *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		var unhealthy []string
		for _, s := range srv.provider.Statuses() {
			if !s.Healthy() {
				unhealthy = append(unhealthy, s.Name)
			}
		}
		if len(unhealthy) > 0 {
			srv.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Unhealthy: unhealthy})
			return
		}
		srv.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		srv.writeJSON(w, http.StatusOK, srv.provider.Statuses())
	})
	mux.Handle("/metrics", promhttp.Handler())
	return otelhttp.NewHandler(mux, "status")
}

func (srv *StatusServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.logger.Error("failed to write response", err)
	}
}

// UpdateHealth sets the serving status of every pipeline, keyed by pipeline name, and
// of the empty service name, which reflects all pipelines.
func (srv *StatusServer) UpdateHealth() {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, s := range srv.provider.Statuses() {
		status := healthpb.HealthCheckResponse_SERVING
		if !s.Healthy() {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		srv.health.SetServingStatus(s.Name, status)
	}
	srv.health.SetServingStatus("", overall)
}

// HealthServer returns the gRPC health service.
func (srv *StatusServer) HealthServer() healthpb.HealthServer {
	return srv.health
}

// Start serves until ctx is done.
func (srv *StatusServer) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	if srv.httpAddr != "" {
		lis, err := net.Listen("tcp", srv.httpAddr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", srv.httpAddr)
		}
		httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			srv.logger.Info("serving status over HTTP", "addr", lis.Addr().String())
			if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	if srv.grpcAddr != "" {
		lis, err := net.Listen("tcp", srv.grpcAddr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", srv.grpcAddr)
		}
		grpcSrv := grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, srv.health)
		eg.Go(func() error {
			srv.logger.Info("serving health over gRPC", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			srv.health.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
		eg.Go(func() error {
			ticker := time.NewTicker(healthRefreshInterval)
			defer ticker.Stop()
			for {
				srv.UpdateHealth()
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	return eg.Wait()
}
