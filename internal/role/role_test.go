package role

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type failingCaps struct{ err error }

func (f failingCaps) Has(context.Context, string, string) (bool, error) {
	return false, f.err
}

func TestDialerRoleNeedsVoiceCapability(t *testing.T) {
	ctx := context.Background()

	withVoice := NewCapabilityProvider(StaticCapabilities{"voice_call": true}, "voice_call")
	ok, err := withVoice.IsAvailable(ctx, "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("voice-capable device should offer the dialer role")
	}

	withoutVoice := NewCapabilityProvider(StaticCapabilities{}, "voice_call")
	ok, err = withoutVoice.IsAvailable(ctx, "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("device without voice capability must not offer the dialer role")
	}
}

func TestCapabilityLookupFailurePropagates(t *testing.T) {
	lookupErr := errors.New("telephony service unreachable")
	p := NewCapabilityProvider(failingCaps{err: lookupErr}, "voice_call")

	ok, err := p.IsAvailable(context.Background(), "0")
	if err == nil {
		t.Fatal("lookup failure must propagate, not default")
	}
	if !errors.Is(err, lookupErr) {
		t.Errorf("error = %v, want wrapped %v", err, lookupErr)
	}
	if ok {
		t.Error("availability must be false on error")
	}
}

func TestRegistryLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `roles:
  - name: dialer
    capability: voice_call
  - name: browser
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}

	r := NewRegistry(StaticCapabilities{"voice_call": false})
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(r.Names()) != 2 {
		t.Fatalf("names = %v, want 2 roles", r.Names())
	}

	ctx := context.Background()
	if ok, err := r.IsAvailable(ctx, "dialer", "0"); err != nil || ok {
		t.Errorf("dialer = %v, %v; want false, nil", ok, err)
	}
	// No capability requirement means always available.
	if ok, err := r.IsAvailable(ctx, "browser", "0"); err != nil || !ok {
		t.Errorf("browser = %v, %v; want true, nil", ok, err)
	}
}

func TestRegistryUnknownRole(t *testing.T) {
	r := NewRegistry(StaticCapabilities{})
	if _, err := r.IsAvailable(context.Background(), "assistant", "0"); err == nil {
		t.Error("unknown role must be an error, not a silent false")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  - capability: voice_call\n"), 0o644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}
	r := NewRegistry(StaticCapabilities{})
	if err := r.LoadFile(path); err == nil {
		t.Error("entry without a name must fail to load")
	}
}

func TestRegistryReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  - name: dialer\n    capability: voice_call\n"), 0o644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}
	r := NewRegistry(StaticCapabilities{"voice_call": true})
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	// A reload replaces the definitions wholesale.
	if err := os.WriteFile(path, []byte("roles:\n  - name: sms\n"), 0o644); err != nil {
		t.Fatalf("rewrite roles file: %v", err)
	}
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := r.IsAvailable(context.Background(), "dialer", "0"); err == nil {
		t.Error("dialer should be gone after reload")
	}
	if ok, err := r.IsAvailable(context.Background(), "sms", "0"); err != nil || !ok {
		t.Errorf("sms = %v, %v; want true, nil", ok, err)
	}
}
