package api

import (
	"net/http"

	"github.com/mmynk/receiptbook/internal/models"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := s.svc.Accounts.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := s.svc.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Accounts.Me(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) registerDevice(w http.ResponseWriter, r *http.Request) {
	var d models.UserDevice
	if err := decode(w, r, &d); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Accounts.RegisterDevice(r.Context(), identity(r), &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.Accounts.ListDevices(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(devices))
}

func (s *Server) putBudget(w http.ResponseWriter, r *http.Request) {
	var b models.Budget
	if err := decode(w, r, &b); err != nil {
		writeError(w, err)
		return
	}
	if err := pathID(r, &b.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Budgets.Put(r.Context(), identity(r), &b); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Get(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(budgets))
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	version, err := queryInt(r, "version", true)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), identity(r), r.PathValue("id"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) putCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if err := decode(w, r, &c); err != nil {
		writeError(w, err)
		return
	}
	if err := pathID(r, &c.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Categories.Put(r.Context(), identity(r), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Categories.Get(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	version, err := queryInt(r, "version", true)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), identity(r), r.PathValue("id"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) seedCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Categories.Seed(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"added": n})
}

func (s *Server) putReceipt(w http.ResponseWriter, r *http.Request) {
	var rc models.Receipt
	if err := decode(w, r, &rc); err != nil {
		writeError(w, err)
		return
	}
	if err := pathID(r, &rc.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Receipts.Put(r.Context(), identity(r), &rc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *Server) getReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := s.svc.Receipts.Get(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.svc.Receipts.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(receipts))
}

func (s *Server) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	version, err := queryInt(r, "version", true)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Receipts.Delete(r.Context(), identity(r), r.PathValue("id"), version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) changes(w http.ResponseWriter, r *http.Request) {
	since, err := queryInt(r, "since", false)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := s.svc.Sync.Changes(r.Context(), identity(r), r.PathValue("kind"), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
