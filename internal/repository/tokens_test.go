package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/internal/model"
)

func TestIssueAndRotateRefreshToken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, r, model.RoleProfessional, nil, "token@example.com")

	issued, err := r.IssueRefreshToken(ctx, user.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.True(t, issued.IsValid())

	rotated, err := r.RotateRefreshToken(ctx, issued.Token, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, rotated.Token)
	assert.Equal(t, user.ID, rotated.UserID)

	// The consumed token is revoked; replaying it fails.
	_, err = r.RotateRefreshToken(ctx, issued.Token, time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	// The replacement still works.
	_, err = r.RotateRefreshToken(ctx, rotated.Token, time.Hour)
	assert.NoError(t, err)
}

func TestRotateExpiredTokenRejected(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, r, model.RoleProfessional, nil, "expired@example.com")

	issued, err := r.IssueRefreshToken(ctx, user.ID, -time.Minute)
	require.NoError(t, err)
	assert.True(t, issued.IsExpired())

	_, err = r.RotateRefreshToken(ctx, issued.Token, time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateUnknownTokenRejected(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.RotateRefreshToken(context.Background(), "no-such-token", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeUserTokens(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, r, model.RoleProfessional, nil, "revoke@example.com")

	first, err := r.IssueRefreshToken(ctx, user.ID, time.Hour)
	require.NoError(t, err)
	second, err := r.IssueRefreshToken(ctx, user.ID, time.Hour)
	require.NoError(t, err)

	require.NoError(t, r.RevokeUserTokens(ctx, user.ID))

	_, err = r.RotateRefreshToken(ctx, first.Token, time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.RotateRefreshToken(ctx, second.Token, time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}
