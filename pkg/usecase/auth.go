package usecase

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// firebaseJWKSURL serves the public keys Firebase signs ID tokens with
const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

const sessionDuration = 24 * time.Hour

// Auth implements identity-token verification and session management.
// ID tokens are verified against Firebase's published signing keys; the
// resulting role comes from the email, never from the token payload.
type Auth struct {
	repo      interfaces.Repository
	projectID string
	keys      jwk.Set
}

// NewAuth creates the auth use case. The JWKS cache refreshes itself in the
// background until ctx is cancelled.
func NewAuth(ctx context.Context, repo interfaces.Repository, projectID string) (*Auth, error) {
	if projectID == "" {
		return nil, goerr.New("Firebase project ID is required")
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(firebaseJWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, goerr.Wrap(err, "failed to register Firebase JWKS")
	}
	if _, err := cache.Refresh(ctx, firebaseJWKSURL); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch Firebase JWKS")
	}

	return NewAuthWithKeySet(repo, projectID, jwk.NewCachedSet(cache, firebaseJWKSURL))
}

// NewAuthWithKeySet creates the auth use case with an explicit signing key
// set instead of the Firebase JWKS endpoint
func NewAuthWithKeySet(repo interfaces.Repository, projectID string, keys jwk.Set) (*Auth, error) {
	if projectID == "" {
		return nil, goerr.New("Firebase project ID is required")
	}
	return &Auth{
		repo:      repo,
		projectID: projectID,
		keys:      keys,
	}, nil
}

// VerifyIDToken checks the token's signature, issuer, audience and expiry,
// and returns the user it identifies
func (a *Auth) VerifyIDToken(ctx context.Context, rawToken string) (*model.User, error) {
	if rawToken == "" {
		return nil, goerr.New("ID token is required")
	}

	token, err := jwt.Parse([]byte(rawToken),
		jwt.WithKeySet(a.keys),
		jwt.WithValidate(true),
		jwt.WithIssuer("https://securetoken.google.com/"+a.projectID),
		jwt.WithAudience(a.projectID),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid ID token")
	}

	email, _ := token.PrivateClaims()["email"].(string)
	if email == "" {
		return nil, goerr.New("ID token has no email claim")
	}
	name, _ := token.PrivateClaims()["name"].(string)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := model.NewUser(types.UserID(token.Subject()), email, name)

	ctxlog.From(ctx).Info("ID token verified",
		"user_id", user.ID,
		"email", user.Email,
		"role", user.Role,
	)
	return user, nil
}

// ValidateSignupEmail rejects self-service registration of reserved
// addresses before the account is created upstream
func (a *Auth) ValidateSignupEmail(email string) error {
	if model.IsReservedEmail(email) {
		return goerr.New("this email address is reserved", goerr.V("email", email))
	}
	return nil
}

// CreateSession issues a new session for a verified user
func (a *Auth) CreateSession(ctx context.Context, user *model.User) (*model.Session, error) {
	logger := ctxlog.From(ctx)

	if user == nil || user.ID == "" {
		return nil, goerr.New("user is required")
	}

	session, err := model.NewSession(user, sessionDuration)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session")
	}

	if err := a.repo.SaveSession(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to save session")
	}

	logger.Info("session created",
		"session_id", session.ID,
		"user_id", user.ID,
		"expires_at", session.ExpiresAt,
	)
	return session, nil
}

// ValidateSession checks a session ID and secret pair
func (a *Auth) ValidateSession(ctx context.Context, id, secret string) (*model.Session, error) {
	if id == "" || secret == "" {
		return nil, goerr.New("session ID and secret are required")
	}

	session, err := a.repo.GetSession(ctx, types.SessionID(id))
	if err != nil {
		return nil, goerr.Wrap(err, "session not found")
	}

	if subtle.ConstantTimeCompare([]byte(session.Secret), []byte(secret)) != 1 {
		return nil, goerr.New("invalid session secret")
	}
	if session.IsExpired() {
		return nil, goerr.New("session expired")
	}

	return session, nil
}

// Logout removes a session
func (a *Auth) Logout(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return goerr.New("session ID is required")
	}

	if err := a.repo.DeleteSession(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete session")
	}

	ctxlog.From(ctx).Info("session deleted", "session_id", id)
	return nil
}
