package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

// ProfileRepository implements repositories.ProfileRepository. The
// profiles table is owned by the platform's profile store; this
// repository only ever reads it.
type ProfileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB, logger *zap.Logger) repositories.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves a profile by user id. Returns nil, nil when no
// profile exists.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, email, full_name, department, university, is_admin, active, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	profile := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.FullName,
		&profile.Department,
		&profile.University,
		&profile.IsAdmin,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}
