package workflow

import "github.com/grantd/grantd/internal/grant"

// SourceFunc adapts a subscribe function to the Source interface.
type SourceFunc func(
	onSnapshot func(*grant.Snapshot),
	onDetail func(*grant.Detail),
	onAdminInfo func(*grant.AdminInfo),
) (cancel func())

func (f SourceFunc) Subscribe(
	onSnapshot func(*grant.Snapshot),
	onDetail func(*grant.Detail),
	onAdminInfo func(*grant.AdminInfo),
) (cancel func()) {
	return f(onSnapshot, onDetail, onAdminInfo)
}

// AuthorityFunc adapts a plain function to the Authority interface.
type AuthorityFunc func(grant.Request)

func (f AuthorityFunc) RequestChange(req grant.Request) { f(req) }

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(w grant.DenyWarning, confirm func(), cancel func())

func (f ConfirmerFunc) ConfirmDeny(w grant.DenyWarning, confirm func(), cancel func()) {
	f(w, confirm, cancel)
}
