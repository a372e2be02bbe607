package repository

import (
	"context"
	"testing"
	"time"

	"cake-haven/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(email string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         "admin",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestUserCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	user := testUser("owner@cakehaven.test")
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Role, byEmail.Role)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	_, err = repo.FindByEmail(ctx, "nobody@cakehaven.test")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	user := testUser("dup@cakehaven.test")
	require.NoError(t, repo.Create(ctx, user))

	other := testUser("dup@cakehaven.test")
	err := repo.Create(ctx, other)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testDB)
	tokenRepo := NewRefreshTokenRepository(testDB)

	user := testUser("tokens@cakehaven.test")
	require.NoError(t, userRepo.Create(ctx, user))

	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, tokenRepo.Create(ctx, token))

	found, err := tokenRepo.FindByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	require.NoError(t, tokenRepo.Revoke(ctx, token.Token))

	_, err = tokenRepo.FindByToken(ctx, token.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	err = tokenRepo.Revoke(ctx, "missing-token")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}
