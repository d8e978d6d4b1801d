package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

const testSecret = "test-secret"

type fakeUserLookup struct {
	users map[string]*model.User
}

func (f *fakeUserLookup) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func signToken(t *testing.T, secret, userID string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifier(t *testing.T) {
	userID := primitive.NewObjectID()
	inactiveID := primitive.NewObjectID()
	lookup := &fakeUserLookup{users: map[string]*model.User{
		userID.Hex():     {ID: userID, Phone: "+1555", IsActive: true},
		inactiveID.Hex(): {ID: inactiveID, Phone: "+1556", IsActive: false},
	}}
	verifier := NewVerifier(testSecret, lookup, zap.NewNop())

	tests := []struct {
		name       string
		credential string
		wantMsg    string
	}{
		{
			name:       "missing credential",
			credential: "",
			wantMsg:    "credential missing",
		},
		{
			name:       "expired token",
			credential: signToken(t, testSecret, userID.Hex(), -time.Minute),
			wantMsg:    "token expired",
		},
		{
			name:       "garbage token",
			credential: "not.a.jwt",
			wantMsg:    "malformed token",
		},
		{
			name:       "wrong secret",
			credential: signToken(t, "other-secret", userID.Hex(), time.Minute),
			wantMsg:    "malformed token",
		},
		{
			name:       "subject not an object id",
			credential: signToken(t, testSecret, "bogus", time.Minute),
			wantMsg:    "unrecognized subject",
		},
		{
			name:       "subject unknown",
			credential: signToken(t, testSecret, primitive.NewObjectID().Hex(), time.Minute),
			wantMsg:    "unrecognized subject",
		},
		{
			name:       "subject deactivated",
			credential: signToken(t, testSecret, inactiveID.Hex(), time.Minute),
			wantMsg:    "unrecognized subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := verifier.Verify(context.Background(), tt.credential)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
			assert.Equal(t, tt.wantMsg, apperr.MessageOf(err))
		})
	}

	t.Run("valid token resolves user", func(t *testing.T) {
		user, err := verifier.Verify(context.Background(), signToken(t, testSecret, userID.Hex(), time.Minute))
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
	})

	t.Run("bearer prefix is stripped", func(t *testing.T) {
		credential := "Bearer " + signToken(t, testSecret, userID.Hex(), time.Minute)
		user, err := verifier.Verify(context.Background(), credential)
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
	})
}

func TestIssuerRefresh(t *testing.T) {
	userID := primitive.NewObjectID()
	lookup := &fakeUserLookup{users: map[string]*model.User{
		userID.Hex(): {ID: userID, IsActive: true},
	}}
	issuer := NewIssuer(testSecret, "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	verifier := NewVerifier(testSecret, lookup, zap.NewNop())

	pair, err := issuer.Issue(userID.Hex())
	require.NoError(t, err)

	// the access token verifies directly
	user, err := verifier.Verify(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	// a refresh token is not an access token
	_, err = verifier.Verify(context.Background(), pair.RefreshToken)
	assert.Error(t, err)

	// but it mints a new verifiable access token
	access, err := issuer.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	user, err = verifier.Verify(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	// an access token cannot refresh
	_, err = issuer.Refresh(pair.AccessToken)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}
