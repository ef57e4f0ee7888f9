/*
middleware.go - Session verification and request logging

PURPOSE:
  Authentication stays with the managed identity provider; this service
  only verifies the bearer JWT it issued (HS256, shared secret) and builds
  the explicit leave.ActingContext every guard call receives. The acting
  mode (an admin wearing the staff hat) comes from the X-Acting-Mode
  header, never from ambient state.

CLAIMS:
  sub    user id
  email  user email
  role   staff | manager | admin
  emp    the user's own employee record id, if any

SEE ALSO:
  - leave/types.go: ActingContext
  - handlers.go: per-route permission decisions
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/atlashr/leave-engine/leave"
)

type contextKey string

const actingKey contextKey = "acting"

// ActingFrom extracts the acting context installed by Auth. The zero value
// is returned for unauthenticated test requests.
func ActingFrom(ctx context.Context) leave.ActingContext {
	if a, ok := ctx.Value(actingKey).(leave.ActingContext); ok {
		return a
	}
	return leave.ActingContext{}
}

// WithActing installs an acting context, for tests and internal calls.
func WithActing(ctx context.Context, a leave.ActingContext) context.Context {
	return context.WithValue(ctx, actingKey, a)
}

// Auth verifies the bearer token and installs the acting context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				http.Error(w, `{"error":"missing bearer token","code":"UNAUTHENTICATED"}`, http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token","code":"UNAUTHENTICATED"}`, http.StatusUnauthorized)
				return
			}

			acting := leave.ActingContext{
				UserID:     claimString(claims, "sub"),
				Email:      claimString(claims, "email"),
				Role:       leave.Role(claimString(claims, "role")),
				EmployeeID: claimString(claims, "emp"),
				Mode:       leave.ModeStaff,
			}
			if acting.Role == leave.RoleAdmin && r.Header.Get("X-Acting-Mode") == string(leave.ModeAdmin) {
				acting.Mode = leave.ModeAdmin
			}

			next.ServeHTTP(w, r.WithContext(WithActing(r.Context(), acting)))
		})
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// Logging logs one line per request with status and duration.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= 500 {
				level = slog.LevelError
			} else if ww.Status() >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
