package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

// SecurityEventRepository implements repositories.SecurityEventRepository
type SecurityEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSecurityEventRepository creates a new security event repository
func NewSecurityEventRepository(db *DB, logger *zap.Logger) repositories.SecurityEventRepository {
	return &SecurityEventRepository{
		db:     db,
		logger: logger,
	}
}

const securityEventColumns = `id, event_type, user_id, email, severity, ip_address, user_agent, page_url, details, timestamp`

// Insert appends a new security event
func (r *SecurityEventRepository) Insert(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (
			id, event_type, user_id, email, severity,
			ip_address, user_agent, page_url, details, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.UserID,
		event.Email,
		event.Severity,
		event.IPAddress,
		event.UserAgent,
		event.PageURL,
		event.Details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}

	r.logger.Debug("security event inserted",
		zap.String("id", event.ID.String()),
		zap.String("event_type", event.EventType))
	return nil
}

// GetByID retrieves a security event by ID
func (r *SecurityEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SecurityEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM security_events WHERE id = $1`, securityEventColumns)

	event, err := scanSecurityEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security event: %w", err)
	}
	return event, nil
}

// GetBySubject retrieves events for a user with pagination
func (r *SecurityEventRepository) GetBySubject(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM security_events
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`, securityEventColumns)

	return r.queryEvents(ctx, query, userID, limit, offset)
}

// GetBySeverity retrieves events of a given severity with pagination
func (r *SecurityEventRepository) GetBySeverity(ctx context.Context, severity models.Severity, limit, offset int) ([]*models.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM security_events
		WHERE severity = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`, securityEventColumns)

	return r.queryEvents(ctx, query, string(severity), limit, offset)
}

// GetByDateRange retrieves events within a time range with pagination
func (r *SecurityEventRepository) GetByDateRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*models.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`, securityEventColumns)

	return r.queryEvents(ctx, query, start, end, limit, offset)
}

// GetByEventType retrieves events of a given type with pagination
func (r *SecurityEventRepository) GetByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM security_events
		WHERE event_type = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`, securityEventColumns)

	return r.queryEvents(ctx, query, eventType, limit, offset)
}

// queryEvents runs a multi-row event query
func (r *SecurityEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		event, err := scanSecurityEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security events: %w", err)
	}

	return events, nil
}

// rowScanner abstracts sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSecurityEvent scans one event row
func scanSecurityEvent(row rowScanner) (*models.SecurityEvent, error) {
	event := &models.SecurityEvent{}
	err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.UserID,
		&event.Email,
		&event.Severity,
		&event.IPAddress,
		&event.UserAgent,
		&event.PageURL,
		&event.Details,
		&event.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}
