package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// IssueToken signs a bearer token whose subject is the actor id.
func IssueToken(secret string, actorID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(actorID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func parseToken(secret, raw string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid token subject")
	}
	return uint(id), nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// Authorize resolves the bearer token to an active actor and stores it in the
// request context. Requests without a valid token are rejected with 401.
func Authorize(secret string, actors actor.Repository) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpapi.WriteError(w, http.StatusUnauthorized, serrors.CodeAuthorizationDenied, "missing bearer token", nil)
				return
			}
			actorID, err := parseToken(secret, raw)
			if err != nil {
				httpapi.WriteError(w, http.StatusUnauthorized, serrors.CodeAuthorizationDenied, "invalid bearer token", nil)
				return
			}
			a, err := actors.GetByID(r.Context(), actorID)
			if err != nil {
				httpapi.WriteError(w, http.StatusUnauthorized, serrors.CodeAuthorizationDenied, "unknown actor", nil)
				return
			}
			if !a.Active() {
				httpapi.WriteError(w, http.StatusForbidden, serrors.CodeAuthorizationDenied, "actor is deactivated", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithActor(r.Context(), a)))
		})
	}
}
