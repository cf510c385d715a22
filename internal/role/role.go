package role

import (
	"context"
	"fmt"
)

// CapabilitySource answers whether the device (for a given user) has a
// named capability, e.g. "voice_call" for telephony. Lookups may touch
// platform services, so they can fail; callers get the error as-is.
type CapabilitySource interface {
	Has(ctx context.Context, user, capability string) (bool, error)
}

// Provider decides whether a role may be assigned at all on this device.
// Implementations are pure: no side effects, no caching, idempotent.
type Provider interface {
	IsAvailable(ctx context.Context, user string) (bool, error)
}

// CapabilityProvider gates a role on a single device capability. The
// dialer role, for example, requires voice-call capability.
type CapabilityProvider struct {
	caps       CapabilitySource
	capability string
}

func NewCapabilityProvider(caps CapabilitySource, capability string) *CapabilityProvider {
	return &CapabilityProvider{caps: caps, capability: capability}
}

func (p *CapabilityProvider) IsAvailable(ctx context.Context, user string) (bool, error) {
	ok, err := p.caps.Has(ctx, user, p.capability)
	if err != nil {
		return false, fmt.Errorf("capability %s: %w", p.capability, err)
	}
	return ok, nil
}

// alwaysAvailable is used for roles with no capability requirement.
type alwaysAvailable struct{}

func (alwaysAvailable) IsAvailable(context.Context, string) (bool, error) {
	return true, nil
}

// StaticCapabilities is a CapabilitySource backed by a fixed set, used by
// tests and by deployments that declare device capabilities in config.
type StaticCapabilities map[string]bool

func (s StaticCapabilities) Has(_ context.Context, _ string, capability string) (bool, error) {
	return s[capability], nil
}
