// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
)

// ProfileFetcher retrieves driver profile data.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, customerID string) (*domain.DriverProfile, error)
}

// IntentDetector classifies the user's message into an intent id.
type IntentDetector interface {
	DetectIntent(ctx context.Context, message string, history []continuity.Turn) (*domain.IntentResult, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
