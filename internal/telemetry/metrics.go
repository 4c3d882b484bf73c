package telemetry

import (
	"fmt"
	"net/http"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	namespaceRoot = "relayer"
)

var (
	ProcessedHeaderGauge *Int64SyncGauge
	LaneNonceGauge       *Int64SyncGauge
	RaceStateGauge       *Int64SyncGauge

	SubmittedTxCounter        api.Int64Counter = noop.Int64Counter{}
	TxOutcomeCounter          api.Int64Counter = noop.Int64Counter{}
	SubmittedMessagesCounter  api.Int64Counter = noop.Int64Counter{}
	StrategyDecisionCounter   api.Int64Counter = noop.Int64Counter{}
	UnprofitableBatchCounter  api.Int64Counter = noop.Int64Counter{}
	PricingFailureCounter     api.Int64Counter = noop.Int64Counter{}
	GuardAbortCounter         api.Int64Counter = noop.Int64Counter{}
	EquivocationReportCounter api.Int64Counter = noop.Int64Counter{}

	meter = otel.Meter(name)
)

func InitializeMetrics() error {
	var err error

	// create the instrument "relayer.processed_header_number"
	name := fmt.Sprintf("%s.processed_header_number", namespaceRoot)
	if ProcessedHeaderGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("latest source header number submitted to the target"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.lane.nonce"
	name = fmt.Sprintf("%s.lane.nonce", namespaceRoot)
	if LaneNonceGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("latest generated, received and confirmed nonces of a lane"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.race.state"
	name = fmt.Sprintf("%s.race.state", namespaceRoot)
	if RaceStateGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("current state of a relay loop"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	counters := []struct {
		target      *api.Int64Counter
		suffix      string
		description string
	}{
		{&SubmittedTxCounter, "submitted_transactions", "number of transactions submitted"},
		{&TxOutcomeCounter, "transaction_outcomes", "number of tracked transactions by terminal status"},
		{&SubmittedMessagesCounter, "lane.submitted_messages", "number of messages submitted in delivery or confirmation transactions"},
		{&StrategyDecisionCounter, "strategy.decisions", "number of relay decisions by result"},
		{&UnprofitableBatchCounter, "strategy.unprofitable_batches", "number of submitted batches whose reward did not cover the cost"},
		{&PricingFailureCounter, "strategy.pricing_failures", "number of batches that could not be priced"},
		{&GuardAbortCounter, "guard.aborts", "number of relay guards that aborted"},
		{&EquivocationReportCounter, "equivocation.reports", "number of equivocation reports submitted"},
	}
	for _, c := range counters {
		name = fmt.Sprintf("%s.%s", namespaceRoot, c.suffix)
		if *c.target, err = meter.Int64Counter(
			name,
			api.WithUnit("1"),
			api.WithDescription(c.description),
		); err != nil {
			return fmt.Errorf("failed to create the instrument %s: %v", name, err)
		}
	}

	return nil
}

// NewPrometheusExporter creates a reader registered to the default Prometheus
// registry. When addr is not empty, a /metrics endpoint is served on it.
func NewPrometheusExporter(addr string) (*prometheus.Exporter, error) {
	if addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger := log.GetLogger().WithModule("telemetry")
				logger.Fatal("Prometheus exporter server failed", err)
			}
		}()
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create the Prometheus Exporter: %v", err)
	}

	return exporter, nil
}
