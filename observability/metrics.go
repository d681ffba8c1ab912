package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CounterSpec binds an event type to an OTel counter.
type CounterSpec struct {
	Type        EventType
	Name        string
	Description string
	Unit        string

	// ValueKey names the Data entry holding the increment. When empty, or when
	// the entry is missing or not an integer, each event adds one.
	ValueKey string

	// Attributes lists the string-valued Data entries recorded as metric
	// attributes. Other entries are not recorded, which keeps per-event values
	// such as ids and checksums out of the attribute set.
	Attributes []string
}

// MetricsObserver turns events into OTel counter increments. Events with no
// bound counter are ignored.
type MetricsObserver struct {
	counters map[EventType]boundCounter
}

type boundCounter struct {
	counter    metric.Int64Counter
	valueKey   string
	attributes []string
}

// NewMetricsObserver creates one Int64Counter per spec on meter.
func NewMetricsObserver(meter metric.Meter, specs ...CounterSpec) (*MetricsObserver, error) {
	counters := make(map[EventType]boundCounter, len(specs))
	for _, spec := range specs {
		counter, err := meter.Int64Counter(spec.Name,
			metric.WithDescription(spec.Description),
			metric.WithUnit(spec.Unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", spec.Name, err)
		}
		counters[spec.Type] = boundCounter{
			counter:    counter,
			valueKey:   spec.ValueKey,
			attributes: spec.Attributes,
		}
	}
	return &MetricsObserver{counters: counters}, nil
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	bound, ok := m.counters[event.Type]
	if !ok {
		return
	}

	incr := int64(1)
	if bound.valueKey != "" {
		if v, ok := toInt64(event.Data[bound.valueKey]); ok {
			incr = v
		}
	}
	if incr <= 0 {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(bound.attributes))
	for _, k := range bound.attributes {
		if s, ok := event.Data[k].(string); ok {
			attrs = append(attrs, attribute.String(k, s))
		}
	}
	bound.counter.Add(ctx, incr, metric.WithAttributes(attrs...))
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
