package data

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/yola1107/czech/internal/data"

// 计数器名
const (
	MetricPersistFailures = "czech.persist.failures"
	MetricPersistDropped  = "czech.persist.dropped"
	MetricSnapshotCorrupt = "czech.snapshot.corrupt"
	MetricPersistSaved    = "czech.persist.saved"
)

// Metrics 持久化计数; 进程内用 ManualReader 汇总, 通过 /debug/metrics 查看
type Metrics struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader

	failures metric.Int64Counter
	dropped  metric.Int64Counter
	corrupt  metric.Int64Counter
	saved    metric.Int64Counter
}

func NewMetrics() (*Metrics, func(), error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(provider, reader)
	if err != nil {
		return nil, nil, err
	}
	otel.SetMeterProvider(provider)

	cleanup := func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			log.Errorf("[data] meter provider shutdown: %v", err)
		}
	}
	return m, cleanup, nil
}

func newMetrics(provider *sdkmetric.MeterProvider, reader *sdkmetric.ManualReader) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{provider: provider, reader: reader}

	var err error
	if m.failures, err = meter.Int64Counter(MetricPersistFailures,
		metric.WithDescription("snapshot writes or deletes that failed")); err != nil {
		return nil, fmt.Errorf("counter %s: %w", MetricPersistFailures, err)
	}
	if m.dropped, err = meter.Int64Counter(MetricPersistDropped,
		metric.WithDescription("snapshots dropped because the writer queue was full")); err != nil {
		return nil, fmt.Errorf("counter %s: %w", MetricPersistDropped, err)
	}
	if m.corrupt, err = meter.Int64Counter(MetricSnapshotCorrupt,
		metric.WithDescription("stored snapshots that could not be restored")); err != nil {
		return nil, fmt.Errorf("counter %s: %w", MetricSnapshotCorrupt, err)
	}
	if m.saved, err = meter.Int64Counter(MetricPersistSaved,
		metric.WithDescription("snapshots written")); err != nil {
		return nil, fmt.Errorf("counter %s: %w", MetricPersistSaved, err)
	}
	return m, nil
}

func opAttr(op string) metric.AddOption {
	return metric.WithAttributes(attribute.String("op", op))
}

// Counters 汇总所有计数器当前值(各属性求和)
func (m *Metrics) Counters(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := map[string]int64{
		MetricPersistFailures: 0,
		MetricPersistDropped:  0,
		MetricSnapshotCorrupt: 0,
		MetricPersistSaved:    0,
	}
	for _, sm := range rm.ScopeMetrics {
		for _, mm := range sm.Metrics {
			sum, ok := mm.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[mm.Name] += dp.Value
			}
		}
	}
	return out, nil
}
