// Package repositories defines the data-access contracts for the two
// external stores this core touches: the read-only profile store and the
// append-only security event sink.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/diu-mct/access-guard/models"
)

// ProfileRepository reads user profiles. Profiles are owned by the
// platform's document store; this core never writes them.
type ProfileRepository interface {
	// GetByUserID retrieves a profile by user id. Returns nil, nil when
	// no profile exists.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// SecurityEventRepository is the external audit sink. Events are
// append-only: there is no update or delete.
type SecurityEventRepository interface {
	// Insert appends a new security event
	Insert(ctx context.Context, event *models.SecurityEvent) error

	// GetByID retrieves a security event by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.SecurityEvent, error)

	// GetBySubject retrieves events for a user with pagination
	GetBySubject(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error)

	// GetBySeverity retrieves events of a given severity with pagination
	GetBySeverity(ctx context.Context, severity models.Severity, limit, offset int) ([]*models.SecurityEvent, error)

	// GetByDateRange retrieves events within a time range with pagination
	GetByDateRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*models.SecurityEvent, error)

	// GetByEventType retrieves events of a given type with pagination
	GetByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error)
}
