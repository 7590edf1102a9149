package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates the instruments of one meter and keeps the first
// creation error, so a whole metric set is checked once.
type instruments struct {
	meter metric.Meter
	err   error
}

func newInstruments(mt metric.Meter) *instruments {
	return &instruments{meter: mt}
}

// count is a monotonic int64 counter.
func (in *instruments) count(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

// seconds is a duration histogram bucketed from a small request up to a full
// blame of a large repository.
func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	in.keep(name, err)

	return h
}

// gauge tracks a value that rises and falls, such as in-flight operations.
func (in *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}
