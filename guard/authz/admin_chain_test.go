package authz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/identity"
	"github.com/diu-mct/access-guard/models"
)

const testAdminEmail = "head.mct@diu.edu.bd"

type recordedEvent struct {
	eventType string
	subject   models.Subject
	details   map[string]interface{}
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) Record(ctx context.Context, eventType string, subject models.Subject, details map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType, subject, details})
}

func (r *fakeRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

type fakeProvider struct {
	claims    *identity.Claims
	claimsErr error
	signOut   func(ctx context.Context, uid string) error
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*models.Identity, string, error) {
	return nil, "", errors.New("not implemented")
}

func (p *fakeProvider) SignOut(ctx context.Context, uid string) error {
	if p.signOut != nil {
		return p.signOut(ctx, uid)
	}
	return nil
}

func (p *fakeProvider) RefreshClaims(ctx context.Context, uid string) (*identity.Claims, error) {
	return p.claims, p.claimsErr
}

type fakeProfiles struct {
	profiles map[string]*models.Profile
	err      error
}

func (f *fakeProfiles) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

// adminFixture builds an identity, provider and profile store that pass
// every gate; individual tests break one gate at a time.
func adminFixture() (*models.Identity, *fakeProvider, *fakeProfiles) {
	ident := &models.Identity{
		UID:           "admin-uid",
		Email:         testAdminEmail,
		EmailVerified: true,
	}
	provider := &fakeProvider{claims: &identity.Claims{Admin: true}}
	profiles := &fakeProfiles{profiles: map[string]*models.Profile{
		"admin-uid": {
			UserID:   "admin-uid",
			Email:    testAdminEmail,
			FullName: AdminFullName,
			IsAdmin:  true,
		},
	}}
	return ident, provider, profiles
}

func newTestChain(provider *fakeProvider, profiles *fakeProfiles) (*AdminChain, *fakeRecorder) {
	logger, _ := zap.NewDevelopment()
	recorder := &fakeRecorder{}
	return NewAdminChain(testAdminEmail, provider, profiles, recorder, logger), recorder
}

func TestAdminChain_AllGatesPass(t *testing.T) {
	ident, provider, profiles := adminFixture()
	chain, recorder := newTestChain(provider, profiles)

	assert.True(t, chain.IsAdmin(context.Background(), ident))
	assert.Equal(t, []string{
		models.EventSuccessfulAdminVerification,
		models.EventAdminAccessGranted,
	}, recorder.types())
}

func TestAdminChain_NilIdentity(t *testing.T) {
	_, provider, profiles := adminFixture()
	chain, recorder := newTestChain(provider, profiles)

	assert.False(t, chain.IsAdmin(context.Background(), nil))
	assert.Empty(t, recorder.types())
}

func TestAdminChain_GateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong email", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		ident.Email = "someone.else@diu.edu.bd"
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminEmailMismatch}, recorder.types())
	})

	t.Run("unverified email", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		ident.EmailVerified = false
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventUnverifiedAdminEmail}, recorder.types())
	})

	t.Run("claims refresh error denies", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		provider.claims = nil
		provider.claimsErr = errors.New("provider unavailable")
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminVerificationError}, recorder.types())
		assert.Equal(t, "claims_refresh", recorder.events[0].details["check"])
	})

	t.Run("missing admin claim", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		provider.claims = &identity.Claims{Admin: false}
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventMissingAdminClaim}, recorder.types())
	})

	t.Run("profile lookup error denies", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		profiles.err = errors.New("store down")
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminVerificationError}, recorder.types())
		assert.Equal(t, "profile_lookup", recorder.events[0].details["check"])
	})

	t.Run("missing profile", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		delete(profiles.profiles, "admin-uid")
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminProfileMismatch}, recorder.types())
	})

	t.Run("profile not flagged admin", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		profiles.profiles["admin-uid"].IsAdmin = false
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminProfileMismatch}, recorder.types())
	})

	t.Run("profile name mismatch", func(t *testing.T) {
		ident, provider, profiles := adminFixture()
		profiles.profiles["admin-uid"].FullName = "Dr. Rahman"
		chain, recorder := newTestChain(provider, profiles)

		assert.False(t, chain.IsAdmin(ctx, ident))
		assert.Equal(t, []string{models.EventAdminProfileMismatch}, recorder.types())
	})
}

func TestAdminChain_VerifyAccessSharesChain(t *testing.T) {
	ident, provider, profiles := adminFixture()
	chain, _ := newTestChain(provider, profiles)

	assert.True(t, chain.VerifyAccess(context.Background(), ident))

	ident.EmailVerified = false
	assert.False(t, chain.VerifyAccess(context.Background(), ident))
}
