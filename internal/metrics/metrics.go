// Package metrics exposes the one OpenTelemetry instrument the transport
// core needs: a live-transaction gauge per TransactionManager, used to spot
// leaks (transactions that never close). A client library has no process
// of its own to export metrics from, so only lazy instrument registration
// against whatever global MeterProvider the embedding application sets up
// lives here — no exporter or tracer wiring.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// PendingGauge tracks the number of transactions currently held open by a
// TransactionManager.
type PendingGauge struct {
	counter metric.Int64UpDownCounter
}

// NewPendingGauge registers an up-down counter under the given meter name.
// If the global MeterProvider is a no-op (the common case for a library
// embedded in an application that never configured OpenTelemetry), the
// returned instrument is a safe no-op too.
func NewPendingGauge(meterName string) *PendingGauge {
	meter := otel.Meter(meterName)
	counter, err := meter.Int64UpDownCounter(
		"janode.transactions.pending",
		metric.WithDescription("number of Janus transactions awaiting a reply"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create pending-transaction gauge: %v", err))
	}
	return &PendingGauge{counter: counter}
}

func (g *PendingGauge) Inc(ctx context.Context) {
	if g == nil {
		return
	}
	g.counter.Add(ctx, 1)
}

func (g *PendingGauge) Dec(ctx context.Context) {
	if g == nil {
		return
	}
	g.counter.Add(ctx, -1)
}
