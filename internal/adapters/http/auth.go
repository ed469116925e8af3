package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/kirillkom/intendex/internal/core/domain"
)

// JWTAuthenticator validates HS256 bearer tokens issued by the account
// service. The subject claim carries the user ID.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) (*JWTAuthenticator, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTAuthenticator{secret: []byte(secret)}, nil
}

func (a *JWTAuthenticator) Authenticate(authorization string) (string, error) {
	tokenString, ok := bearerToken(authorization)
	if !ok {
		return "", domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("bearer token is required"))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", domain.WrapError(domain.ErrUnauthorized, "authenticate", err)
	}
	if !token.Valid {
		return "", domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("invalid token"))
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "authenticate", fmt.Errorf("token has no subject"))
	}
	return userID, nil
}

func bearerToken(headerValue string) (string, bool) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if len(headerValue) <= len(bearerPrefix) || !strings.EqualFold(headerValue[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(headerValue[len(bearerPrefix):])
	return token, token != ""
}

type authenticator interface {
	Authenticate(authorization string) (string, error)
}

type userIDContextKey struct{}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey{}).(string)
	return userID
}

func requireUser(auth authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
		next(w, r.WithContext(ctx))
	}
}
