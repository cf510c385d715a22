package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/grantd/grantd/internal/authority"
	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/store"
)

type callerKey struct{}

func withCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerFrom(ctx context.Context) string {
	if c, ok := ctx.Value(callerKey{}).(string); ok {
		return c
	}
	return "unknown"
}

func subjectFrom(r *http.Request) grant.Subject {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = "0"
	}
	return grant.Subject{
		App:   r.PathValue("app"),
		Group: r.PathValue("group"),
		User:  user,
	}
}

// Request/response types

type availabilityResponse struct {
	Role      string `json:"role"`
	User      string `json:"user"`
	Available bool   `json:"available"`
}

type changeRequest struct {
	Grant     bool   `json:"grant"`
	UserFixed bool   `json:"user_fixed"`
	Target    string `json:"target"`
}

// GrantListing is the API shape for one subject's computed grant state.
type GrantListing struct {
	Subject  grant.Subject    `json:"subject"`
	Snapshot *grant.Snapshot  `json:"snapshot"`
	Detail   *grant.Detail    `json:"detail,omitempty"`
	Admin    *grant.AdminInfo `json:"admin,omitempty"`
}

type auditResponse struct {
	Caller    string        `json:"caller"`
	Request   grant.Request `json:"request"`
	AppliedAt string        `json:"applied_at"`
}

// Handlers

func (s *Server) handleRoleAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	user := r.URL.Query().Get("user")
	if user == "" {
		user = "0"
	}
	ok, err := s.roles.IsAvailable(r.Context(), name, user)
	if err != nil {
		// Capability lookup failures are the caller's problem to handle,
		// not something to paper over with a default.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Role: name, User: user, Available: ok})
}

func (s *Server) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	sub := subjectFrom(r)
	rec, err := s.store.GetGrant(sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no grant state for "+sub.String())
		return
	}
	snap, detail, admin := authority.Compute(rec)
	writeJSON(w, http.StatusOK, GrantListing{Subject: sub, Snapshot: snap, Detail: detail, Admin: admin})
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	sub := subjectFrom(r)
	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	target, err := grant.ParseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	change := grant.Request{Grant: req.Grant, UserFixed: req.UserFixed, Target: target}
	if err := s.authority.Request(sub, callerFrom(r.Context()), change); err != nil {
		// The change was not applied, but subscribers already got the
		// authoritative snapshot back. Report it anyway for CLI callers.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListByApp(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = "0"
	}
	recs, err := s.store.ListGrantsForApp(r.PathValue("app"), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, grantsToResponses(recs))
}

func (s *Server) handleListByGroup(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = "0"
	}
	recs, err := s.store.ListGrantsForGroup(r.PathValue("group"), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, grantsToResponses(recs))
}

func grantsToResponses(recs []*store.GrantRecord) []GrantListing {
	out := make([]GrantListing, 0, len(recs))
	for _, rec := range recs {
		snap, detail, admin := authority.Compute(rec)
		out = append(out, GrantListing{Subject: rec.Subject, Snapshot: snap, Detail: detail, Admin: admin})
	}
	return out
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	sub := subjectFrom(r)
	entries, err := s.store.ListAudit(sub, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			Caller:    e.Caller,
			Request:   e.Request,
			AppliedAt: e.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
