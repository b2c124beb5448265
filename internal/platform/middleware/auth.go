package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "memberflow/pkg/domain"
	"memberflow/pkg/requestcontext"
)

// ActorValidator validates a bearer token and returns the actor it belongs to.
type ActorValidator interface {
	ValidateToken(tokenString string) (id.ActorID, error)
}

// JWTActorValidator validates HMAC-signed tokens whose subject claim carries
// the actor's UUID.
type JWTActorValidator struct {
	key []byte
}

func NewJWTActorValidator(signingKey string) *JWTActorValidator {
	return &JWTActorValidator{key: []byte(signingKey)}
}

func (v *JWTActorValidator) ValidateToken(tokenString string) (id.ActorID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return id.ActorID{}, err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return id.ActorID{}, err
	}
	return id.ParseActorID(subject)
}

// RequireActor rejects requests without a valid bearer token and stores the
// authenticated actor in the request context for history and audit entries.
func RequireActor(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					"request_id", requestcontext.RequestID(ctx))
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			actorID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx))
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActorID(ctx, actorID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
