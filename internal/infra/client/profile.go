package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// ProfileClient fetches driver profile data from the Profile API.
type ProfileClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewProfileClient creates a new ProfileClient.
func NewProfileClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ProfileClient {
	return &ProfileClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetProfile fetches a driver profile with retry, circuit breaker, and tracing.
func (c *ProfileClient) GetProfile(ctx context.Context, customerID string) (*domain.DriverProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileClient.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	result, err := c.cb.Execute(func() (any, error) {
		var profile domain.DriverProfile
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/v1/drivers/%s/profile", c.baseURL, url.PathEscape(customerID))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			injectTraceHeaders(ctx, req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: customerID})
			}
			if resp.StatusCode != http.StatusOK {
				return statusError("profile API", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&profile)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &profile, nil
	})

	if err != nil {
		span.RecordError(err)
		return nil, resilience.ExternalError("profile", err)
	}

	return result.(*domain.DriverProfile), nil
}
