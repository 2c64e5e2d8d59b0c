package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// statusError reports a non-200 response; 4xx other than 429 is not retried.
func statusError(api string, status int) error {
	err := fmt.Errorf("%s returned status %d", api, status)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

func injectTraceHeaders(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}
