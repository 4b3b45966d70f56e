package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/models"
)

// Context keys set by Authenticate.
const (
	ClaimsKey   = "claims"
	RoleKey     = "user_role"
	DriverIDKey = "user_driver_id"
)

// TokenAuthenticator validates bearer tokens.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.JWTClaims, error)
}

// Authenticate verifies the bearer token and puts the caller into the request context.
func Authenticate(a TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := a.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(RoleKey, claims.Role)
		c.Set(DriverIDKey, claims.DriverID)
		c.Next()
	}
}

// Authorize lets the request through only for the given roles.
func Authorize(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
			return
		}
		for _, role := range allowedRoles {
			if role == claims.Role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}

// SelfOrAdmin restricts driver accounts to routes whose param names their own driver id.
func SelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
			return
		}
		if !CanActFor(claims, c.Param(param)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You can only act on your own driver record"})
			return
		}
		c.Next()
	}
}

// CanActFor reports whether the caller may act on driverID.
func CanActFor(claims *auth.JWTClaims, driverID string) bool {
	if claims.Role == models.RoleAdmin {
		return true
	}
	return claims.Role == models.RoleDriver && claims.DriverID != "" && claims.DriverID == driverID
}

// Claims returns the authenticated caller, or nil outside Authenticate.
func Claims(c *gin.Context) *auth.JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.JWTClaims)
	return claims
}
