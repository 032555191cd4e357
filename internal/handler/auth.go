package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/repository"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	orgIDKey  contextKey = "organization_id"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

func OrgIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(orgIDKey).(uuid.UUID)
	return id
}

// Authenticator verifies HS256 bearer tokens issued by the identity provider.
type Authenticator struct {
	Secret   []byte
	Audience string
	Logger   *zap.Logger
}

func NewAuthenticator(secret, audience string, log *zap.Logger) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Audience: audience, Logger: log}
}

// ParseToken returns the token subject.
func (a *Authenticator) ParseToken(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.Secret, nil
	}, opts...)
	if err != nil {
		return "", appErrors.NewUnauthorized("invalid or expired token")
	}
	if claims.Subject == "" {
		return "", appErrors.NewUnauthorized("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.Secret) == 0 {
			WriteError(w, a.Logger, appErrors.NewUnavailable("authentication is not configured"))
			return
		}
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			WriteError(w, a.Logger, appErrors.NewUnauthorized("missing bearer token"))
			return
		}
		userID, err := a.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			WriteError(w, a.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireOrgMember resolves {orgID} from the route and rejects callers who
// are not members of that organization.
func RequireOrgMember(orgs repository.OrganizationRepositoryInterface, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
			if err != nil {
				WriteError(w, log, appErrors.NewValidation("invalid organization id", err))
				return
			}
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				WriteError(w, log, appErrors.NewUnauthorized("missing user"))
				return
			}

			ok, err := orgs.IsMember(r.Context(), orgID, userID)
			if err != nil {
				WriteError(w, log, appErrors.NewStorage("check organization membership", err))
				return
			}
			if !ok {
				WriteError(w, log, appErrors.NewForbidden("not a member of this organization"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOrgID(r.Context(), orgID)))
		})
	}
}
