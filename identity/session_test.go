package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider implements Provider with function fields.
type fakeProvider struct {
	CurrentUserFunc func(ctx context.Context) (*User, error)
	AccessLevelFunc func(ctx context.Context, uid string) (Access, error)
}

func (p *fakeProvider) CurrentUser(ctx context.Context) (*User, error) {
	if p.CurrentUserFunc != nil {
		return p.CurrentUserFunc(ctx)
	}
	return nil, nil
}

func (p *fakeProvider) AccessLevel(ctx context.Context, uid string) (Access, error) {
	if p.AccessLevelFunc != nil {
		return p.AccessLevelFunc(ctx, uid)
	}
	return AccessUser, nil
}

func TestSessionCachesUser(t *testing.T) {
	resolves := 0
	provider := &fakeProvider{
		CurrentUserFunc: func(context.Context) (*User, error) {
			resolves++
			return &User{UID: "u1", Access: AccessMember}, nil
		},
		AccessLevelFunc: func(_ context.Context, uid string) (Access, error) {
			return AccessMember, nil
		},
	}

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession(provider, WithSessionClock(func() time.Time { return now }))
	ctx := context.Background()

	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 1, resolves)

	now = now.Add(12 * time.Hour)
	_, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolves, "fresh session reuses the resolved user")

	now = now.Add(13 * time.Hour)
	_, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resolves, "expired session resolves again")
}

func TestSessionRefreshesAccessOnCachedHit(t *testing.T) {
	access := AccessMember
	provider := &fakeProvider{
		CurrentUserFunc: func(context.Context) (*User, error) {
			return &User{UID: "u1", Access: AccessMember}, nil
		},
		AccessLevelFunc: func(context.Context, string) (Access, error) {
			return access, nil
		},
	}

	s := NewSession(provider)
	ctx := context.Background()

	_, err := s.CurrentUser(ctx)
	require.NoError(t, err)

	// The user is demoted remotely; the cached hit picks it up.
	access = AccessUser
	u, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccessUser, u.Access)
}

func TestSessionSignedOut(t *testing.T) {
	s := NewSession(&fakeProvider{})

	u, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSessionInvalidate(t *testing.T) {
	resolves := 0
	provider := &fakeProvider{
		CurrentUserFunc: func(context.Context) (*User, error) {
			resolves++
			return &User{UID: "u1", Access: AccessAdmin}, nil
		},
		AccessLevelFunc: func(context.Context, string) (Access, error) {
			return AccessAdmin, nil
		},
	}

	s := NewSession(provider)
	ctx := context.Background()

	_, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	s.Invalidate()
	_, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resolves)
}

func TestAccessTiers(t *testing.T) {
	assert.True(t, AccessAdmin.CanManageMedia())
	assert.True(t, AccessMember.CanManageMedia())
	assert.False(t, AccessUser.CanManageMedia())

	assert.True(t, AccessAdmin.CanManageRoles())
	assert.False(t, AccessMember.CanManageRoles())

	assert.False(t, Access("owner").Valid())
}
