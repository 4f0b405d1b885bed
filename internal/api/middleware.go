package api

import (
	"net/http"
	"strings"

	"order-management-service/internal/auth"

	"github.com/gin-gonic/gin"
)

// Headers set by the gateway that authenticated the request
const (
	headerUserEmail = "X-User-Email"
	headerUserRoles = "X-User-Roles"
)

// callerMiddleware attaches the authenticated caller to the request context.
// Requests without a bearer token or caller email are rejected.
func callerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		email := strings.TrimSpace(c.GetHeader(headerUserEmail))
		if !ok || email == "" {
			abortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		caller := auth.Caller{
			Email:      email,
			Roles:      splitRoles(c.GetHeader(headerUserRoles)),
			Credential: token,
		}
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// requireAdmin rejects callers without the administrator role
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.FromContext(c.Request.Context())
		if !ok || !caller.IsAdmin() {
			abortWithError(c, http.StatusForbidden, "access denied")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func splitRoles(raw string) []string {
	roles := []string{}
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func callerFrom(c *gin.Context) auth.Caller {
	caller, _ := auth.FromContext(c.Request.Context())
	return caller
}
