package http

import (
	"errors"
	"net/http"
	"time"

	"cashbook/internal/auth"
	"cashbook/internal/core"
)

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	c, err := s.credentials.GetCredential(r.Context(), user.ID)
	if errors.Is(err, core.ErrNotFound) {
		WriteJSON(w, http.StatusOK, credentialView{})
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	view := credentialView{Connected: true, UpdatedAt: &c.UpdatedAt}
	if !c.Expiry.IsZero() {
		view.Expiry = &c.Expiry
		view.Connected = c.Expiry.After(s.now())
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !bind(w, r, &req, http.StatusBadRequest) {
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	now := s.now().UTC()
	c := core.Credential{UserID: user.ID, AccessToken: req.AccessToken, UpdatedAt: now}
	if req.ExpiresIn > 0 {
		c.Expiry = now.Add(time.Duration(req.ExpiresIn) * time.Second)
	}
	if err := s.credentials.SaveCredential(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := s.credentials.ClearCredential(r.Context(), user.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	link, err := s.links.GetReportLink(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toReportView(link))
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		WriteError(w, http.StatusServiceUnavailable, "Report export is not configured")
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	link, err := s.reports.Generate(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toReportView(link))
}
