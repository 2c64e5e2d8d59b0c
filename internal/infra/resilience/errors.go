package resilience

import (
	"errors"

	"github.com/evcharge/ev-support-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
)

// ExternalError converts a failed breaker execution into the domain error
// the handlers map to HTTP: ErrCircuitOpen while the breaker rejects calls,
// ErrExternalService otherwise (typed causes stay reachable via errors.As).
func ExternalError(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}
