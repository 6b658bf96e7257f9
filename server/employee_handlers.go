package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ezekl/budget-server/quickbooks"
)

const (
	defaultEmployeeLimit = 100
	maxEmployeeLimit     = 1000
	maxRequestBodyBytes  = 1 << 20
)

// upstreamError maps a proxied QuickBooks failure onto our response. The
// provider's own 4xx statuses pass through with the raw fault body so the
// caller sees what QuickBooks said; everything else is a gateway problem.
func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	var provErr *quickbooks.ProviderError
	if errors.As(err, &provErr) && !provErr.Transport() {
		if provErr.StatusCode >= 400 && provErr.StatusCode < 500 && provErr.Body != "" {
			writeRawJSON(w, provErr.StatusCode, []byte(provErr.Body))
			return
		}
		writeError(w, http.StatusBadGateway, "QuickBooks request failed")
		return
	}
	writeError(w, http.StatusBadGateway, "QuickBooks unreachable")
}

// EmployeeListHandler lists employees via a QuickBooks query.
func (s *Server) EmployeeListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		limit := defaultEmployeeLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > maxEmployeeLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
				return
			}
			limit = parsed
		}

		statement := "SELECT * FROM Employee"
		if raw := r.URL.Query().Get("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "active must be true or false")
				return
			}
			statement += fmt.Sprintf(" WHERE Active = %t", active)
		}
		statement += fmt.Sprintf(" STARTPOSITION 1 MAXRESULTS %d", limit)
		body, err := s.api.Query(r.Context(), session.AccessToken, session.RealmID, statement)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeRawJSON(w, http.StatusOK, body)
	}
}

// EmployeeGetHandler fetches one employee by id.
func (s *Server) EmployeeGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		body, err := s.api.Get(r.Context(), session.AccessToken, session.RealmID, "employee/"+r.PathValue("id"))
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeRawJSON(w, http.StatusOK, body)
	}
}

// EmployeeCreateHandler forwards a new employee document to QuickBooks.
func (s *Server) EmployeeCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
		if err != nil || !json.Valid(payload) {
			writeError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}

		body, err := s.api.Post(r.Context(), session.AccessToken, session.RealmID, "employee", payload)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeRawJSON(w, http.StatusCreated, body)
	}
}

// EmployeeUpdateHandler forwards a full employee update. The body's Id must
// match the path so a stray payload cannot overwrite a different record.
func (s *Server) EmployeeUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}
		var doc map[string]any
		if err := json.Unmarshal(payload, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}
		if id, _ := doc["Id"].(string); id != r.PathValue("id") {
			writeError(w, http.StatusBadRequest, "body Id does not match the path")
			return
		}

		body, err := s.api.Post(r.Context(), session.AccessToken, session.RealmID, "employee", payload)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeRawJSON(w, http.StatusOK, body)
	}
}

// EmployeeSetActiveHandler flips the Active flag. QuickBooks has no delete
// for employees, deactivation is the closest thing; the current document is
// fetched first so the update carries the required SyncToken.
func (s *Server) EmployeeSetActiveHandler(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		current, err := s.api.Get(r.Context(), session.AccessToken, session.RealmID, "employee/"+r.PathValue("id"))
		if err != nil {
			s.upstreamError(w, err)
			return
		}

		var envelope struct {
			Employee map[string]any `json:"Employee"`
		}
		if err := json.Unmarshal(current, &envelope); err != nil || envelope.Employee == nil {
			writeError(w, http.StatusBadGateway, "unexpected QuickBooks response shape")
			return
		}
		envelope.Employee["Active"] = active

		payload, err := json.Marshal(envelope.Employee)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to build update payload")
			return
		}
		body, err := s.api.Post(r.Context(), session.AccessToken, session.RealmID, "employee", payload)
		if err != nil {
			s.upstreamError(w, err)
			return
		}
		writeRawJSON(w, http.StatusOK, body)
	}
}
