package restserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chrissnell/foilcast/pkg/responseformat"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

type contextKey string

const userContextKey contextKey = "user"

// authenticator validates HS256 bearer tokens. The token's subject is the
// rider's user id.
type authenticator struct {
	secret []byte
}

func newAuthenticator(secret string) *authenticator {
	return &authenticator{secret: []byte(secret)}
}

func (a *authenticator) parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func (a *authenticator) middleware(f *responseformat.Formatter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			header := req.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				f.WriteError(w, req, http.StatusUnauthorized, "bearer token required")
				return
			}

			userID, err := a.parse(parts[1])
			if err != nil {
				f.WriteError(w, req, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), userContextKey, userID)))
		})
	}
}

func userFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey).(string)
	return userID
}
