package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/repositories"
)

func newMockEventRepo(t *testing.T) (repositories.SecurityEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db := NewDBFromConn(conn, zap.NewNop())
	return NewSecurityEventRepository(db, zap.NewNop()), mock
}

func eventRows(events ...*models.SecurityEvent) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "user_id", "email", "severity",
		"ip_address", "user_agent", "page_url", "details", "timestamp",
	})
	for _, e := range events {
		rows.AddRow(e.ID, e.EventType, e.UserID, e.Email, e.Severity,
			e.IPAddress, e.UserAgent, e.PageURL, e.Details, e.Timestamp)
	}
	return rows
}

func sampleEvent() *models.SecurityEvent {
	uid := "uid-1"
	email := "x-40-001@diu.edu.bd"
	details, _ := json.Marshal(map[string]interface{}{"attempt": 3})
	return &models.SecurityEvent{
		ID:        uuid.New(),
		EventType: models.EventFailedLogin,
		UserID:    &uid,
		Email:     &email,
		Severity:  models.SeverityWarning,
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		PageURL:   "/login",
		Details:   details,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSecurityEventRepository_Insert(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()

	mock.ExpectExec("INSERT INTO security_events").
		WithArgs(event.ID, event.EventType, event.UserID, event.Email, event.Severity,
			event.IPAddress, event.UserAgent, event.PageURL, event.Details, event.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSecurityEventRepository_InsertError(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()

	mock.ExpectExec("INSERT INTO security_events").
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert security event")
}

func TestSecurityEventRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockEventRepo(t)
		event := sampleEvent()

		mock.ExpectQuery("SELECT (.+) FROM security_events WHERE id").
			WithArgs(event.ID).
			WillReturnRows(eventRows(event))

		got, err := repo.GetByID(context.Background(), event.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, event.EventType, got.EventType)
	})

	t.Run("missing returns nil, nil", func(t *testing.T) {
		repo, mock := newMockEventRepo(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM security_events WHERE id").
			WithArgs(id).
			WillReturnRows(eventRows())

		got, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSecurityEventRepository_GetBySubject(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()

	mock.ExpectQuery("SELECT (.+) FROM security_events\\s+WHERE user_id").
		WithArgs("uid-1", 50, 0).
		WillReturnRows(eventRows(event))

	events, err := repo.GetBySubject(context.Background(), "uid-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "uid-1", *events[0].UserID)
}

func TestSecurityEventRepository_GetBySeverity(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()

	mock.ExpectQuery("SELECT (.+) FROM security_events\\s+WHERE severity").
		WithArgs("warning", 10, 20).
		WillReturnRows(eventRows(event))

	events, err := repo.GetBySeverity(context.Background(), models.SeverityWarning, 10, 20)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SeverityWarning, events[0].Severity)
}

func TestSecurityEventRepository_GetByDateRange(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM security_events\\s+WHERE timestamp").
		WithArgs(start, end, 50, 0).
		WillReturnRows(eventRows(event))

	events, err := repo.GetByDateRange(context.Background(), start, end, 50, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSecurityEventRepository_GetByEventType(t *testing.T) {
	repo, mock := newMockEventRepo(t)
	event := sampleEvent()

	mock.ExpectQuery("SELECT (.+) FROM security_events\\s+WHERE event_type").
		WithArgs(models.EventFailedLogin, 50, 0).
		WillReturnRows(eventRows(event))

	events, err := repo.GetByEventType(context.Background(), models.EventFailedLogin, 50, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventFailedLogin, events[0].EventType)
}

func TestSecurityEventRepository_QueryError(t *testing.T) {
	repo, mock := newMockEventRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM security_events").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByEventType(context.Background(), models.EventFailedLogin, 50, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query security events")
}
