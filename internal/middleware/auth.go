// Package middleware holds the net/http middleware shared by every API
// route: bearer authentication, device identification, request logging
// and request metrics.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mmynk/receiptbook/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// DeviceIDKey is the context key for storing the calling device ID.
	DeviceIDKey contextKey = "device_id"
)

// DeviceHeader names the request header carrying the device id.
const DeviceHeader = "X-Device-ID"

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetDeviceID extracts the calling device from the context.
// Returns empty string if the request named none.
func GetDeviceID(ctx context.Context) string {
	deviceID, _ := ctx.Value(DeviceIDKey).(string)
	return deviceID
}

// WithUser returns ctx carrying the given identity.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes an ErrorBody with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Error: code, Message: message})
}

// RequireAuth validates the bearer token of every request and adds the
// user ID and email to the request context. Requests without a valid token
// get 401.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrMissingToken.Error())
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrInvalidToken.Error())
				return
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrInvalidToken.Error())
				return
			}

			setLoggedUser(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email)))
		})
	}
}

// Device copies the X-Device-ID header into the request context. It does
// not check the device; services do, because only they know the user.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(DeviceHeader)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), DeviceIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}
