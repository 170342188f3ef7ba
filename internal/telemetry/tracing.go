package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mytwin/twin-admin/internal/graphql"
)

const tracerName = "github.com/mytwin/twin-admin/graphql"

// TraceOperations records a client span and duration metrics for every
// GraphQL operation passing through the chain, and propagates the trace
// context in the request headers.
func TraceOperations() graphql.Middleware {
	tracer := otel.Tracer(tracerName)
	m := GetMetrics()

	return func(next graphql.Handler) graphql.Handler {
		return func(ctx context.Context, op *graphql.Operation) (*graphql.Response, error) {
			ctx, span := tracer.Start(ctx, "graphql "+op.Name,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(attribute.String("graphql.operation.name", op.Name)),
			)
			defer span.End()

			op = op.Clone()
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(op.Header))

			started := time.Now()
			resp, err := next(ctx, op)

			outcome := "ok"
			switch {
			case err != nil:
				outcome = "transport_error"
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case len(resp.Errors) > 0:
				outcome = "graphql_error"
				span.SetStatus(codes.Error, resp.Errors[0].Message)
				span.SetAttributes(attribute.Int("graphql.errors", len(resp.Errors)))
			}

			attrs := metric.WithAttributes(
				attribute.String("operation", op.Name),
				attribute.String("outcome", outcome),
			)
			m.OperationsTotal.Add(ctx, 1, attrs)
			m.OperationDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

			return resp, err
		}
	}
}
