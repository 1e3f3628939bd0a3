// Package api exposes the services over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mmynk/receiptbook/internal/auth"
	"github.com/mmynk/receiptbook/internal/metrics"
	"github.com/mmynk/receiptbook/internal/middleware"
	"github.com/mmynk/receiptbook/internal/service"
	"github.com/mmynk/receiptbook/internal/storage"
)

// ConflictMessage is the body of every 409 caused by a stale version.
const ConflictMessage = "Optimistic concurrency error"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Services are the use cases served by the API.
type Services struct {
	Accounts   *service.AccountService
	Budgets    *service.BudgetService
	Categories *service.CategoryService
	Receipts   *service.ReceiptService
	Sync       *service.SyncService
}

// Server routes API requests to the services.
type Server struct {
	svc    Services
	jwt    *auth.JWTManager
	health func(context.Context) error
	mux    *http.ServeMux
}

// NewServer builds the route table. health, if non-nil, backs /healthz.
func NewServer(svc Services, jwtManager *auth.JWTManager, health func(context.Context) error) *Server {
	s := &Server{svc: svc, jwt: jwtManager, health: health, mux: http.NewServeMux()}

	s.public("POST /v1/auth/register", s.register)
	s.public("POST /v1/auth/login", s.login)
	s.public("GET /healthz", s.healthz)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.private("GET /v1/me", s.me)
	s.private("POST /v1/devices", s.registerDevice)
	s.private("GET /v1/devices", s.listDevices)

	s.private("PUT /v1/budgets", s.putBudget)
	s.private("PUT /v1/budgets/{id}", s.putBudget)
	s.private("GET /v1/budgets", s.listBudgets)
	s.private("GET /v1/budgets/{id}", s.getBudget)
	s.private("DELETE /v1/budgets/{id}", s.deleteBudget)

	s.private("PUT /v1/categories", s.putCategory)
	s.private("PUT /v1/categories/{id}", s.putCategory)
	s.private("GET /v1/categories", s.listCategories)
	s.private("GET /v1/categories/{id}", s.getCategory)
	s.private("DELETE /v1/categories/{id}", s.deleteCategory)
	s.private("POST /v1/categories/seed", s.seedCategories)

	s.private("PUT /v1/receipts", s.putReceipt)
	s.private("PUT /v1/receipts/{id}", s.putReceipt)
	s.private("GET /v1/receipts", s.listReceipts)
	s.private("GET /v1/receipts/{id}", s.getReceipt)
	s.private("DELETE /v1/receipts/{id}", s.deleteReceipt)

	s.private("GET /v1/changes/{kind}", s.changes)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) public(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, middleware.Logging(pattern, h))
}

func (s *Server) private(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, middleware.Logging(pattern,
		middleware.RequireAuth(s.jwt)(middleware.Device(h))))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			middleware.WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identity returns the caller established by the auth middleware.
func identity(r *http.Request) service.Identity {
	return service.Identity{
		UserID:   middleware.GetUserID(r.Context()),
		DeviceID: middleware.GetDeviceID(r.Context()),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return storage.NewValidationError("", "malformed request body: %v", err)
	}
	return nil
}

// pathID reconciles the {id} path segment with the id in the body.
func pathID(r *http.Request, bodyID *string) error {
	id := r.PathValue("id")
	if id == "" {
		return nil
	}
	if *bodyID != "" && *bodyID != id {
		return storage.NewValidationError("id", "body id %q does not match path id %q", *bodyID, id)
	}
	*bodyID = id
	return nil
}

func queryInt(r *http.Request, name string, required bool) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, storage.NewValidationError(name, "is required")
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, storage.NewValidationError(name, "must be an integer, got %q", raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a service error onto the API status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case storage.IsNotFound(err):
		middleware.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case storage.IsConflict(err):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(ConflictMessage))
	case errors.Is(err, auth.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		middleware.WriteError(w, http.StatusConflict, "email_exists", err.Error())
	default:
		slog.Error("Request failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
