package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

// UserLookup is the slice of the user repository the verifier needs.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Verifier validates an inbound credential and resolves it to a user.
// It is a pure check re-run on every connection attempt and every request;
// nothing is cached from earlier verifications.
type Verifier struct {
	secret []byte
	users  UserLookup
	logger *zap.Logger
}

func NewVerifier(secret string, users UserLookup, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		users:  users,
		logger: logger,
	}
}

// Verify parses the credential and returns the active user it identifies.
// Failures are all apperr.Unauthorized with a distinguishable message:
// missing, expired, malformed, or unknown subject.
func (v *Verifier) Verify(ctx context.Context, credential string) (*model.User, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return nil, apperr.Unauthorized("credential missing")
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("token expired").WithCause(err)
		}
		return nil, apperr.Unauthorized("malformed token").WithCause(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthorized("malformed token")
	}

	subject, _ := claims["id"].(string)
	if _, err := primitive.ObjectIDFromHex(subject); err != nil {
		return nil, apperr.Unauthorized("unrecognized subject")
	}

	user, err := v.users.FindByID(ctx, subject)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("unrecognized subject")
		}
		v.logger.Error("user lookup failed during verification",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return nil, apperr.Internal("verification failed").WithCause(err)
	}

	if !user.IsActive {
		return nil, apperr.Unauthorized("unrecognized subject")
	}

	return user, nil
}

// Issuer mints access and refresh token pairs.
type Issuer struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// TokenPair is what a client receives after verification or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func NewIssuer(secret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Issue mints an access/refresh pair for the given user id.
func (i *Issuer) Issue(userID string) (*TokenPair, error) {
	access, err := i.sign(userID, i.secret, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(userID, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.refreshSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Unauthorized("refresh token expired").WithCause(err)
		}
		return "", apperr.Unauthorized("malformed refresh token").WithCause(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.Unauthorized("malformed refresh token")
	}
	subject, _ := claims["id"].(string)
	if subject == "" {
		return "", apperr.Unauthorized("unrecognized subject")
	}

	return i.sign(subject, i.secret, i.accessTTL)
}

func (i *Issuer) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
