package metrics

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc"
)

// observe records one finished request on the collector and, if set, the exporter
func observe(collector *Collector, exporter *PrometheusExporter, transport, method string, start time.Time, failed bool) {
	key := transport + " " + method
	duration := time.Since(start).Seconds()

	collector.Observe(key, duration, failed)

	if exporter != nil {
		exporter.RecordRequest(transport, method)
		exporter.RecordDuration(transport, method, duration)
		if failed {
			exporter.RecordError(transport, method)
		}
	}
}

// UnaryServerInterceptor returns a gRPC interceptor that records metrics for each request.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(collector, exporter, TransportGRPC, info.FullMethod, start, err != nil)
		return resp, err
	}
}

// FiberMiddleware records metrics for each HTTP request, labelled by route
// pattern so that record IDs do not create new series.
func FiberMiddleware(collector *Collector, exporter *PrometheusExporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		method := c.Method() + " " + c.Route().Path
		observe(collector, exporter, TransportHTTP, method, start, status >= 400)
		return err
	}
}
