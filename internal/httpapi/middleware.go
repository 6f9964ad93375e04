package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const followerKey = "follower"

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// webhookAuth checks the shared token the activity provider sends in Authorization.
func webhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader("Authorization"))
		got = strings.TrimPrefix(got, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
		c.Next()
	}
}

// FollowerClaims identify a follower; Subject is the follower wallet.
type FollowerClaims struct {
	jwt.RegisteredClaims
}

// SignFollowerToken issues an HS256 token for wallet valid for ttl.
func SignFollowerToken(secret, wallet string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := FollowerClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   wallet,
		Issuer:    "solana-kalshi-copier",
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyFollowerToken(secret, token string) (*FollowerClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &FollowerClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*FollowerClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// followerAuth requires a bearer token whose subject is the :wallet path parameter.
// Query parameter "token" is accepted for websocket clients that cannot set headers.
func followerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := c.Param("wallet")
		if secret == "" {
			c.Set(followerKey, wallet)
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(raw, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		} else {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := verifyFollowerToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject != wallet {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not match wallet"})
			return
		}
		c.Set(followerKey, wallet)
		c.Next()
	}
}
