package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// metricsRoute is the path the Prometheus handler is mounted on.
const metricsRoute = "/metrics"

// recorder captures the response status for spans and RED metrics.
type recorder struct {
	http.ResponseWriter

	status int
}

// WriteHeader records the first status code written.
func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}

	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(buf []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}

	n, err := rw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// MetricsMux serves the Prometheus handler at /metrics. Each request runs in a
// server span named "METHOD /path" and, when red is non-nil, is counted under
// the "http METHOD /path" op.
func MetricsMux(tracer trace.Tracer, red *REDMetrics, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsRoute, metrics)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Method + " " + r.URL.Path
		start := time.Now()

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		if red != nil {
			defer red.TrackInflight(ctx, "http "+name)()
		}

		rw := &recorder{ResponseWriter: w}
		mux.ServeHTTP(rw, r.WithContext(ctx))

		if rw.status == 0 {
			rw.status = http.StatusOK
		}

		span.SetAttributes(semconv.HTTPResponseStatusCode(rw.status))

		status := StatusOK
		if rw.status >= http.StatusBadRequest {
			status = StatusError
		}

		if rw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rw.status))
		}

		if red != nil {
			red.RecordRequest(ctx, "http "+name, status, time.Since(start))
		}
	})
}
