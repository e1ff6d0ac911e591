package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	obscontext "github.com/smallbiznis/lawdirectory/internal/observability/context"
	obslogger "github.com/smallbiznis/lawdirectory/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	contextActorKey = "actor"
	bearerPrefix    = "Bearer "
)

// Claims is the access token issued by the identity provider. Subject is the
// user id; Role is informational, the stored profile decides permissions.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.parseBearer(c.GetHeader("Authorization"))
		if err != nil {
			obslogger.FromContext(c.Request.Context()).Debug("rejected bearer token", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := Actor{ID: strings.TrimSpace(claims.Subject), Role: strings.TrimSpace(claims.Role)}
		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actor.Role, actor.ID))
		c.Next()
	}
}

func (s *Server) parseBearer(header string) (*Claims, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return nil, errors.New("missing bearer token")
	}

	secret := []byte(s.cfg.AuthJWTSecret)
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
