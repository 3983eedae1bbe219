package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/pkg/logger"
)

// ContextKeyUser is where requireAuth stores the authenticated user.
const ContextKeyUser = "lustra:user"

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// requireAuth validates the bearer token against the auth service and
// stores the user record in the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		user, err := s.auth.Me(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "auth service unavailable", "details": err.Error()})
			return
		}
		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// requestLogger logs one line per request through the shared logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log := logger.FromContext(c.Request.Context())
		log.Debug("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func decodeOverrides(raw string, overrides *pipeline.Overrides) error {
	if err := json.Unmarshal([]byte(raw), overrides); err != nil {
		return fmt.Errorf("overrides must be a JSON object: %w", err)
	}
	return nil
}
