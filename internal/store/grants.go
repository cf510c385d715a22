package store

import (
	"database/sql"
	"fmt"

	"github.com/grantd/grantd/internal/grant"
)

// GrantRecord is the persisted state for one subject. It is the raw
// material the authority turns into snapshots.
type GrantRecord struct {
	Subject        grant.Subject
	FgGranted      bool
	BgGranted      bool
	HasBackground  bool
	OneTime        bool
	UserFixed      bool
	DefaultGranted bool
	Legacy         bool
	// Individual counts permissions in the group that are controlled
	// one by one instead of through the group toggle.
	Individual int
	// Admin fields are set when policy locks this subject's state.
	AdminEnforcer    *string
	AdminRestriction *string
}

func (s *Store) GetGrant(sub grant.Subject) (*GrantRecord, error) {
	r := &GrantRecord{Subject: sub}
	err := s.db.QueryRow(`SELECT fg_granted, bg_granted, has_background, one_time, user_fixed,
		default_granted, legacy, individual, admin_enforcer, admin_restriction
		FROM grants WHERE app = ? AND perm_group = ? AND user = ?`,
		sub.App, sub.Group, sub.User).Scan(
		&r.FgGranted, &r.BgGranted, &r.HasBackground, &r.OneTime, &r.UserFixed,
		&r.DefaultGranted, &r.Legacy, &r.Individual, &r.AdminEnforcer, &r.AdminRestriction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grant %s: %w", sub, err)
	}
	return r, nil
}

func (s *Store) UpsertGrant(r *GrantRecord) error {
	_, err := s.db.Exec(`INSERT INTO grants
		(app, perm_group, user, fg_granted, bg_granted, has_background, one_time, user_fixed,
		 default_granted, legacy, individual, admin_enforcer, admin_restriction, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (app, perm_group, user) DO UPDATE SET
		fg_granted = excluded.fg_granted,
		bg_granted = excluded.bg_granted,
		has_background = excluded.has_background,
		one_time = excluded.one_time,
		user_fixed = excluded.user_fixed,
		default_granted = excluded.default_granted,
		legacy = excluded.legacy,
		individual = excluded.individual,
		admin_enforcer = excluded.admin_enforcer,
		admin_restriction = excluded.admin_restriction,
		updated_at = CURRENT_TIMESTAMP`,
		r.Subject.App, r.Subject.Group, r.Subject.User,
		r.FgGranted, r.BgGranted, r.HasBackground, r.OneTime, r.UserFixed,
		r.DefaultGranted, r.Legacy, r.Individual, r.AdminEnforcer, r.AdminRestriction)
	if err != nil {
		return fmt.Errorf("upsert grant %s: %w", r.Subject, err)
	}
	return nil
}

func (s *Store) DeleteGrant(sub grant.Subject) error {
	_, err := s.db.Exec(`DELETE FROM grants WHERE app = ? AND perm_group = ? AND user = ?`,
		sub.App, sub.Group, sub.User)
	if err != nil {
		return fmt.Errorf("delete grant %s: %w", sub, err)
	}
	return nil
}

// ListGrantsForApp returns every permission group recorded for an app, for
// the by-app listing screen.
func (s *Store) ListGrantsForApp(app, user string) ([]*GrantRecord, error) {
	return s.listGrants(`SELECT app, perm_group, user, fg_granted, bg_granted, has_background,
		one_time, user_fixed, default_granted, legacy, individual, admin_enforcer, admin_restriction
		FROM grants WHERE app = ? AND user = ? ORDER BY perm_group`, app, user)
}

// ListGrantsForGroup returns every app recorded for a permission group, for
// the by-permission listing screen.
func (s *Store) ListGrantsForGroup(group, user string) ([]*GrantRecord, error) {
	return s.listGrants(`SELECT app, perm_group, user, fg_granted, bg_granted, has_background,
		one_time, user_fixed, default_granted, legacy, individual, admin_enforcer, admin_restriction
		FROM grants WHERE perm_group = ? AND user = ? ORDER BY app`, group, user)
}

func (s *Store) listGrants(query string, args ...any) ([]*GrantRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []*GrantRecord
	for rows.Next() {
		r := &GrantRecord{}
		if err := rows.Scan(&r.Subject.App, &r.Subject.Group, &r.Subject.User,
			&r.FgGranted, &r.BgGranted, &r.HasBackground, &r.OneTime, &r.UserFixed,
			&r.DefaultGranted, &r.Legacy, &r.Individual, &r.AdminEnforcer, &r.AdminRestriction); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
