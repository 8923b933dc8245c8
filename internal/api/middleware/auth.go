package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type contextKey string

const (
	UserKey      contextKey = "user"
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
)

const (
	msgNoToken      = "No autorizado. Token no proporcionado"
	msgBadToken     = "Token inválido o expirado"
	msgUserNotFound = "Usuario no encontrado"
	msgInactive     = "Cuenta inactiva. Contacte al administrador"
	msgForbidden    = "No tienes permisos para realizar esta acción"
)

// Auth validates the bearer token and loads the user it names. Tokens for
// users that were deleted or deactivated after issue are rejected.
func Auth(tokens auth.TokenValidator, users auth.UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeError(w, http.StatusUnauthorized, msgNoToken)
				return
			}

			claims, err := tokens.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, msgBadToken)
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, msgUserNotFound)
					return
				}
				writeError(w, http.StatusInternalServerError, "Error al verificar el usuario")
				return
			}
			if !user.IsActive() {
				writeError(w, http.StatusForbidden, msgInactive)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserKey, user)
			ctx = context.WithValue(ctx, UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserEmailKey, user.Email)
			ctx = context.WithValue(ctx, UserRoleKey, user.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores user in ctx the same way Auth does.
func WithUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	ctx = context.WithValue(ctx, UserEmailKey, user.Email)
	return context.WithValue(ctx, UserRoleKey, user.Role)
}

func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(UserKey).(*models.User); ok {
		return u
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func GetUserRole(ctx context.Context) models.Role {
	if role, ok := ctx.Value(UserRoleKey).(models.Role); ok {
		return role
	}
	return ""
}

// Can reports whether the caller in ctx holds permission p.
func Can(ctx context.Context, p auth.Permission) bool {
	return auth.Authorize(GetUserRole(ctx), p)
}

func RequirePermission(p auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(r.Context(), p) {
				writeError(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOr lets callers holding p through, and anyone else only when
// the URL parameter param names their own id.
func RequireSelfOr(param string, p auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if Can(ctx, p) || chi.URLParam(r, param) == GetUserID(ctx).String() {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusForbidden, msgForbidden)
		})
	}
}
