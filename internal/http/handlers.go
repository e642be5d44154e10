package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"splitbook/internal/auth"
	"splitbook/internal/core"
	"splitbook/internal/export"
	"splitbook/internal/storage"
)

type expenseResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Friend      string `json:"friend"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toExpenseResponse(rec core.ExpenseRecord) expenseResponse {
	return expenseResponse{
		ID:          rec.ID,
		Category:    rec.Category,
		Friend:      rec.Friend,
		AmountCents: rec.Amount.Cents,
		Amount:      rec.Amount.DecimalString(),
		Note:        rec.Note,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListAll(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toExpenseResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out, "count": len(out)})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Friend   string `json:"friend"`
		Amount   string `json:"amount"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid amount: %v", err))
		return
	}

	rec, err := s.ledger.Add(r.Context(), req.Category, req.Friend, core.Money{Cents: cents}, req.Note)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.auditor.Record(r.Context(), "add_expense", s.actor(r), rec.ID, map[string]string{
		"category": rec.Category,
		"friend":   rec.Friend,
		"amount":   rec.Amount.DecimalString(),
	})

	writeJSON(w, http.StatusCreated, toExpenseResponse(rec))
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	deleted, err := s.ledger.DeleteOne(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	if deleted {
		s.auditor.Record(r.Context(), "delete_expense", s.actor(r), id, nil)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}

	removed, err := s.ledger.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.auditor.Record(r.Context(), "delete_selected_expenses", s.actor(r), "", map[string]string{
		"requested": strconv.Itoa(len(req.IDs)),
		"removed":   strconv.FormatInt(removed, 10),
	})
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	byCategory := make(map[string]int64, len(summary.ByCategory))
	for name, total := range summary.ByCategory {
		byCategory[name] = total.Cents
	}
	byFriend := make(map[string]int64, len(summary.ByFriend))
	for name, total := range summary.ByFriend {
		byFriend[name] = total.Cents
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":             summary.Count,
		"total_cents":       summary.Total.Cents,
		"total":             summary.Total.DecimalString(),
		"by_category_cents": byCategory,
		"by_friend_cents":   byFriend,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if s.gate == nil || s.sessions == nil {
		writeError(w, http.StatusForbidden, "admin access is not configured")
		return
	}

	var req struct {
		Username string `json:"username"`
		Secret   string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.gate.Authorize(req.Username, req.Secret); err != nil {
		slog.WarnContext(r.Context(), "Admin login rejected", "username", req.Username)
		s.auditor.Record(r.Context(), "login_failed", req.Username, "", nil)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionToken, err := s.sessions.Create(r.Context(), req.Username, s.sessionTTL)
	if err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	s.auditor.Record(r.Context(), "login", req.Username, "", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sessionToken,
		"expires_in": int64(s.sessionTTL.Seconds()),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	sessionToken := bearerToken(r)
	if sessionToken == "" || s.sessions == nil {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}

	username, err := s.sessions.Lookup(r.Context(), sessionToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	if err := s.sessions.Delete(r.Context(), sessionToken); err != nil {
		slog.ErrorContext(r.Context(), "Session deletion failed", "error", err)
	}

	s.auditor.Record(r.Context(), "logout", username, "", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	token, username, err := s.resumeAdmin(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return
	}

	removed, err := s.ledger.DeleteAll(r.Context(), token)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	s.auditor.Record(r.Context(), "delete_all_expenses", username, "", map[string]string{
		"removed": strconv.FormatInt(removed, 10),
	})
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	token, username, err := s.resumeAdmin(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return
	}

	records, err := s.ledger.ListAll(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := export.WriteCSV(w, records, token); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
		return
	}

	s.auditor.Record(r.Context(), "export_csv", username, "", map[string]string{
		"records": strconv.Itoa(len(records)),
	})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	if _, _, err := s.resumeAdmin(r); err != nil {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return
	}

	limit := 100
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.auditor.Recent(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Audit log read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read audit log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// resumeAdmin turns a session token from the Authorization header back into
// an admin token and slides the session expiry forward.
func (s *Server) resumeAdmin(r *http.Request) (auth.Token, string, error) {
	if s.gate == nil || s.sessions == nil {
		return auth.Token{}, "", auth.ErrUnauthorized
	}

	sessionToken := bearerToken(r)
	if sessionToken == "" {
		return auth.Token{}, "", auth.ErrUnauthorized
	}

	username, err := s.sessions.Lookup(r.Context(), sessionToken)
	if err != nil {
		return auth.Token{}, "", auth.ErrUnauthorized
	}

	token, err := s.gate.Resume(username)
	if err != nil {
		return auth.Token{}, "", err
	}

	if err := s.sessions.Refresh(r.Context(), sessionToken, s.sessionTTL); err != nil {
		slog.WarnContext(r.Context(), "Session refresh failed", "error", err)
	}

	return token, username, nil
}

// actor resolves the username behind a request for audit purposes.
// Requests without a valid session are recorded as anonymous.
func (s *Server) actor(r *http.Request) string {
	if s.sessions == nil {
		return "anonymous"
	}
	sessionToken := bearerToken(r)
	if sessionToken == "" {
		return "anonymous"
	}
	username, err := s.sessions.Lookup(r.Context(), sessionToken)
	if err != nil {
		return "anonymous"
	}
	return username
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyFriend):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "admin authorization required")
	case errors.Is(err, storage.ErrUnavailable):
		slog.ErrorContext(r.Context(), "Store operation failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		slog.ErrorContext(r.Context(), "Unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
