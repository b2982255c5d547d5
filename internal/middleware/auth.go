package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/pkg/auth"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

// UserResolver finds the stored user behind verified token claims.
type UserResolver interface {
	Resolve(ctx context.Context, externalID, email string) (*model.User, error)
}

type AuthMiddleware struct {
	verifier auth.TokenVerifier
	users    UserResolver
}

func NewAuthMiddleware(verifier auth.TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
	}
}

// Authenticate verifies the bearer token and attaches the actor to the
// request context. Only active users carry a role.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		actor := &model.Actor{
			ExternalID: claims.Subject,
			Email:      claims.Email,
			Name:       claims.Name,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			RequestID:  c.GetString(ContextRequestID),
		}

		user, err := m.users.Resolve(c.Request.Context(), claims.Subject, claims.Email)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		if user != nil {
			actor.UserID = user.ID
			if user.Status == model.UserStatusActive {
				actor.Role = user.Role
			}
		}

		c.Set(ContextActor, actor)
		c.Request = c.Request.WithContext(model.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole lets the request through when the actor's role satisfies
// any of roles. Admin satisfies every check.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := model.ActorFromContext(c.Request.Context())
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}
		if actor.Role == "" || !actor.Role.Satisfies(roles...) {
			log.Warn().
				Str("email", actor.Email).
				Str("role", string(actor.Role)).
				Str("path", c.FullPath()).
				Msg("role check failed")
			httputil.RespondWithError(c, apperrors.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}
