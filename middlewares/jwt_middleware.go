package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"okrproject/logger"
	"okrproject/models"
	"okrproject/utils"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway tolerates clock skew between the issuer and this service.
const tokenLeeway = 30 * time.Second

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Author is the identity recorded on writes: the username claim, else the subject.
func (c *Claims) Author() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

type contextKey string

const UserContextKey contextKey = "user"

var (
	errMissingHeader = errors.New("authorization header required")
	errBadScheme     = errors.New("invalid authorization header format")
)

// JWTMiddleware admits requests carrying an HS256 bearer token signed with
// jwtSecret and stores the token's author in the request context.
func JWTMiddleware(jwtSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(jwtSecret), nil }

	reject := func(w http.ResponseWriter, r *http.Request, message string, err error) {
		log.Debug("request rejected", "request_id", GetRequestID(r.Context()), "path", r.URL.Path, "error", err)
		utils.HandleErrorResponse(w, http.StatusUnauthorized, models.CodeUnauthorized, message)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if errors.Is(err, errMissingHeader) {
				reject(w, r, "Authorization header required", err)
				return
			}
			if err != nil {
				reject(w, r, "Invalid authorization header format", err)
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
			if err != nil {
				reject(w, r, "Invalid token", err)
				return
			}
			if !token.Valid || claims.Author() == "" {
				reject(w, r, "Invalid token claims", errors.New("token carries no username or subject"))
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims.Author())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errBadScheme
	}
	return strings.TrimSpace(token), nil
}

func GetUsernameFromContext(ctx context.Context) string {
	if username, ok := ctx.Value(UserContextKey).(string); ok {
		return username
	}
	return ""
}
