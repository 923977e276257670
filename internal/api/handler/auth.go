package handler

import (
	"net/http"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/identity"
	"fixitfast/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// RequireAuth resolves the bearer token to an actor and stores it on the context.
// Browsers cannot set headers on WebSocket handshakes, so the token may also come
// in the access_token query parameter.
func (h *Handler) RequireAuth(c *gin.Context) {
	raw, err := identity.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		raw = c.Query("access_token")
	}
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	actor, err := h.Identity.Resolve(c.Request.Context(), raw)
	if apperrors.IsAuthorization(err) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}
	if err != nil {
		writeError(c, err)
		c.Abort()
		return
	}

	c.Set(actorKey, actor)
	c.Next()
}

// actorFrom returns the actor stored by RequireAuth.
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
