// api/middleware/session_auth.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evzone/myaccounts/api/config"
	logger "github.com/evzone/myaccounts/api/logging"
	"github.com/evzone/myaccounts/api/model"
)

// SessionClaims is the payload of a session bearer token.
type SessionClaims struct {
	jwt.StandardClaims
	SessionID string `json:"sid"`
	Role      string `json:"role"`
}

// SessionReader is the slice of the session store the middleware needs to
// reject revoked tokens.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	TouchSession(ctx context.Context, sessionID string)
}

// SessionAuthMiddleware validates the bearer token and checks that the
// session behind it is still alive. A signed token whose session has been
// revoked is rejected, which is what makes FORCE_SIGNOUT effective
// immediately.
func SessionAuthMiddleware(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := parseSessionToken(tokenString)
		if err != nil {
			logger.Warn("Rejected session token", zap.Error(err), zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		sess, err := sessions.GetSession(c, claims.SessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		if sess.Revoked || time.Now().After(sess.ExpiresAt) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session revoked"})
			c.Abort()
			return
		}

		sessions.TouchSession(c, claims.SessionID)

		c.Set("userID", claims.Subject)
		c.Set("sessionID", claims.SessionID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRole gates a route group to the given roles; it runs after
// SessionAuthMiddleware has put the role on the context.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		logger.Warn("Role check failed",
			zap.String("userID", c.GetString("userID")),
			zap.String("role", role))
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		c.Abort()
	}
}

func parseSessionToken(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.GetString("auth.jwtSecret")), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token or wrong claims type")
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("token missing subject or session claims")
	}

	return claims, nil
}
