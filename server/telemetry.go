package server

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/alimasry/go-collab-blocks/server"

var tracer = otel.Tracer(instrumentationName)

// instruments counts operations by outcome.
type instruments struct {
	applied  metric.Int64Counter
	stale    metric.Int64Counter
	rejected metric.Int64Counter
}

// newInstruments registers the counters with the global meter provider.
// Counters that fail to register are replaced by no-ops.
func newInstruments() (instruments, error) {
	meter := otel.Meter(instrumentationName)
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{op}"))
		if err != nil {
			errs = append(errs, err)
			return noop.Int64Counter{}
		}
		return c
	}
	inst := instruments{
		applied:  counter("blocktext.ops.applied", "Operations that changed a document."),
		stale:    counter("blocktext.ops.stale", "Operations a document already reflected."),
		rejected: counter("blocktext.ops.rejected", "Operations that failed to apply."),
	}
	return inst, errors.Join(errs...)
}
