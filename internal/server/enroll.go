package server

import (
	"encoding/json"
	"net/http"

	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/store"
)

type enrollRequest struct {
	HasBackground  bool   `json:"has_background"`
	FgGranted      bool   `json:"fg_granted"`
	BgGranted      bool   `json:"bg_granted"`
	DefaultGranted bool   `json:"default_granted"`
	Legacy         bool   `json:"legacy"`
	Individual     int    `json:"individual,omitempty"`
	AdminEnforcer  string `json:"admin_enforcer,omitempty"`
	AdminRestrict  string `json:"admin_restriction,omitempty"`
}

// handleEnroll registers (or resets) grant state for a subject, e.g. on
// app install. Enrollment bypasses the audit trail; it is not a user
// decision.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	sub := subjectFrom(r)
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec := &store.GrantRecord{
		Subject:        sub,
		HasBackground:  req.HasBackground,
		FgGranted:      req.FgGranted,
		BgGranted:      req.BgGranted && req.HasBackground,
		DefaultGranted: req.DefaultGranted,
		Legacy:         req.Legacy,
		Individual:     req.Individual,
	}
	if req.AdminEnforcer != "" {
		rec.AdminEnforcer = &req.AdminEnforcer
		rec.AdminRestriction = &req.AdminRestrict
	}
	if err := s.authority.Seed(rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleRemove drops a subject's state (app uninstalled); watchers get a
// nil snapshot.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sub := subjectFrom(r)
	if err := s.authority.Remove(sub); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnrollSubject is the client side of handleEnroll.
func (c *Client) EnrollSubject(sub grant.Subject, req EnrollOptions) error {
	body, _ := json.Marshal(enrollRequest{
		HasBackground:  req.HasBackground,
		FgGranted:      req.FgGranted,
		BgGranted:      req.BgGranted,
		DefaultGranted: req.DefaultGranted,
		Legacy:         req.Legacy,
		Individual:     req.Individual,
		AdminEnforcer:  req.AdminEnforcer,
		AdminRestrict:  req.AdminRestriction,
	})
	resp, err := c.post(subjectPath(sub, "/enroll"), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, http.StatusCreated)
}

// EnrollOptions mirrors the enrollment payload for CLI callers.
type EnrollOptions struct {
	HasBackground    bool
	FgGranted        bool
	BgGranted        bool
	DefaultGranted   bool
	Legacy           bool
	Individual       int
	AdminEnforcer    string
	AdminRestriction string
}

// RemoveSubject is the client side of handleRemove.
func (c *Client) RemoveSubject(sub grant.Subject) error {
	resp, err := c.post(subjectPath(sub, "/remove"), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, http.StatusNoContent)
}
