package engine

import "github.com/tailored-agentic-units/rewind/observability"

// Engine event types.
const (
	EventStart          observability.EventType = "engine.start"
	EventShutdown       observability.EventType = "engine.shutdown"
	EventEventAdded     observability.EventType = "engine.event.added"
	EventBufferPruned   observability.EventType = "engine.buffer.pruned"
	EventBufferReset    observability.EventType = "engine.buffer.reset"
	EventExportComplete observability.EventType = "engine.export.complete"
	EventExportFailed   observability.EventType = "engine.export.failed"
	EventClear          observability.EventType = "engine.clear"
)

// MetricCounters binds the engine's events to OTel counters for
// observability.NewMetricsObserver.
func MetricCounters() []observability.CounterSpec {
	return []observability.CounterSpec{
		{
			Type:        EventEventAdded,
			Name:        "rewind.events.added",
			Description: "Events appended to the retention buffer",
			Unit:        "{event}",
			Attributes:  []string{"kind"},
		},
		{
			Type:        EventBufferPruned,
			Name:        "rewind.events.pruned",
			Description: "Events dropped by retention pruning",
			Unit:        "{event}",
			ValueKey:    "dropped",
			Attributes:  []string{"outcome"},
		},
		{
			Type:        EventExportComplete,
			Name:        "rewind.exports",
			Description: "Bundles built",
			Unit:        "{bundle}",
			Attributes:  []string{"reason"},
		},
		{
			Type:        EventExportFailed,
			Name:        "rewind.export.failures",
			Description: "Bundle builds that failed",
			Unit:        "{bundle}",
			Attributes:  []string{"reason"},
		},
	}
}
