package middleware

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// AdminAuthorized implements the shared-secret admin check: an exact
// X-Admin-Key header match, or Basic auth with user "admin"
// (case-insensitive) and the key as password. With no key configured the
// decision comes from the precomputed admin.allow_unconfigured value.
func AdminAuthorized(r *http.Request) bool {
	key := viper.GetString("admin.key")
	if key == "" {
		return viper.GetBool("admin.allow_unconfigured")
	}

	if r.Header.Get("X-Admin-Key") == key {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	return strings.EqualFold(user, "admin") && pass == key
}

// NewAdminAuthMiddleware guards the admin endpoints.
func NewAdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if !AdminAuthorized(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}
