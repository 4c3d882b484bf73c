package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

type Int64WithAttributes struct {
	value int64
	attrs attribute.Set
}

// Int64SyncGauge is a gauge whose last set value per attribute set is
// reported on every collection.
type Int64SyncGauge struct {
	gauge         api.Int64ObservableGauge
	mutex         *sync.RWMutex
	attrsValueMap map[string]*Int64WithAttributes
}

func NewInt64SyncGauge(meter api.Meter, name string, options ...api.Int64ObservableGaugeOption) (*Int64SyncGauge, error) {
	mutex := &sync.RWMutex{}
	attrsValueMap := make(map[string]*Int64WithAttributes)
	callback := func(ctx context.Context, observer api.Int64Observer) error {
		mutex.RLock()
		defer mutex.RUnlock()
		for _, entry := range attrsValueMap {
			observer.Observe(entry.value, api.WithAttributeSet(entry.attrs))
		}
		return nil
	}
	options = append(options, api.WithInt64Callback(callback))
	gauge, err := meter.Int64ObservableGauge(name, options...)
	if err != nil {
		return nil, err
	}
	return &Int64SyncGauge{gauge, mutex, attrsValueMap}, nil
}

// Set is a no-op on a nil gauge so that callers do not depend on
// InitializeMetrics having been called.
func (g *Int64SyncGauge) Set(value int64, attr ...attribute.KeyValue) {
	if g == nil {
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	attrs := attribute.NewSet(attr...)
	encodedAttrs := attrs.Encoded(attribute.DefaultEncoder())
	g.attrsValueMap[encodedAttrs] = &Int64WithAttributes{value, attrs}
}

// Get returns the last value set for the attribute set.
func (g *Int64SyncGauge) Get(attr ...attribute.KeyValue) (int64, bool) {
	if g == nil {
		return 0, false
	}
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	attrs := attribute.NewSet(attr...)
	entry, ok := g.attrsValueMap[attrs.Encoded(attribute.DefaultEncoder())]
	if !ok {
		return 0, false
	}
	return entry.value, true
}
