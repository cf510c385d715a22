package store

import (
	"fmt"
	"time"

	"github.com/grantd/grantd/internal/grant"
)

// AuditEntry records one applied change request.
type AuditEntry struct {
	ID        int64
	Subject   grant.Subject
	Caller    string
	Request   grant.Request
	AppliedAt time.Time
}

func (s *Store) AppendAudit(sub grant.Subject, caller string, req grant.Request) error {
	_, err := s.db.Exec(`INSERT INTO audit (app, perm_group, user, caller, grant_req, user_fixed, target)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.App, sub.Group, sub.User, caller, req.Grant, req.UserFixed, string(req.Target))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the most recent entries for a subject, newest first.
func (s *Store) ListAudit(sub grant.Subject, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, app, perm_group, user, caller, grant_req, user_fixed, target, applied_at
		FROM audit WHERE app = ? AND perm_group = ? AND user = ?
		ORDER BY id DESC LIMIT ?`,
		sub.App, sub.Group, sub.User, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		var target, appliedAt string
		var caller *string
		if err := rows.Scan(&e.ID, &e.Subject.App, &e.Subject.Group, &e.Subject.User,
			&caller, &e.Request.Grant, &e.Request.UserFixed, &target, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if caller != nil {
			e.Caller = *caller
		}
		e.Request.Target = grant.ChangeTarget(target)
		if t, err := time.Parse("2006-01-02 15:04:05", appliedAt); err == nil {
			e.AppliedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
