package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cashbook/internal/auth"
	"cashbook/internal/ledger"
)

// session resolves the caller's ledger session, answering the client itself
// on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*ledger.Session, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authorization header required")
		return nil, false
	}
	sess, err := s.sessions.Session(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	WriteJSON(w, http.StatusOK, toUserView(user))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	accounts := sess.Accounts().List()
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountView(a))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !bind(w, r, &req, http.StatusUnprocessableEntity) {
		return
	}
	a, err := req.toAccount()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	created, err := sess.Accounts().Create(r.Context(), a)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toAccountView(created))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !bind(w, r, &req, http.StatusUnprocessableEntity) {
		return
	}
	a, err := req.toAccount()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.ID = chi.URLParam(r, "id")

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Accounts().Update(r.Context(), a); err != nil {
		writeDomainError(w, r, err)
		return
	}
	updated, _ := sess.Accounts().Find(a.ID)
	WriteJSON(w, http.StatusOK, toAccountView(updated))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Accounts().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	txs := sess.Transactions().List()
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionView(t, accountLabel(sess, t.AccountID)))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !bind(w, r, &req, http.StatusUnprocessableEntity) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	created, err := sess.Transactions().Create(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toTransactionView(created, accountLabel(sess, created.AccountID)))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !bind(w, r, &req, http.StatusUnprocessableEntity) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	t.ID = chi.URLParam(r, "id")

	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Transactions().Update(r.Context(), t); err != nil {
		writeDomainError(w, r, err)
		return
	}
	updated, _ := sess.Transactions().Find(t.ID)
	WriteJSON(w, http.StatusOK, toTransactionView(updated, accountLabel(sess, updated.AccountID)))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Transactions().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, toSummaryView(sess.Totals()))
}

func accountLabel(sess *ledger.Session, accountID string) string {
	if accountID == "" {
		return ""
	}
	a, ok := sess.Accounts().Find(accountID)
	if !ok {
		return ""
	}
	return a.Label()
}
