package grant

import "testing"

func TestParseChoice(t *testing.T) {
	for _, c := range Choices {
		got, err := ParseChoice(string(c))
		if err != nil {
			t.Errorf("ParseChoice(%q): %v", c, err)
		}
		if got != c {
			t.Errorf("ParseChoice(%q) = %q", c, got)
		}
	}
	if _, err := ParseChoice("allow-always"); err == nil {
		t.Error("expected error for unknown choice")
	}
	if _, err := ParseChoice(""); err == nil {
		t.Error("expected error for empty choice")
	}
}

func TestParseTarget(t *testing.T) {
	for _, s := range []string{"foreground", "background", "both"} {
		if _, err := ParseTarget(s); err != nil {
			t.Errorf("ParseTarget(%q): %v", s, err)
		}
	}
	if _, err := ParseTarget("fg"); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestSubjectString(t *testing.T) {
	sub := Subject{App: "com.example.maps", Group: "location", User: "0"}
	if got := sub.String(); got != "com.example.maps/location@0" {
		t.Errorf("String() = %q", got)
	}
}

func TestSnapshotClone(t *testing.T) {
	orig := &Snapshot{
		Buttons: map[Choice]ButtonState{
			Allow: {Shown: true, Checked: true, Enabled: true},
			Deny:  {Shown: true, Enabled: true},
		},
		Warning: &DenyWarning{Message: MsgDefaultGranted},
	}
	cp := orig.Clone()

	cp.Buttons[Allow] = ButtonState{}
	cp.Warning.Message = MsgLegacyApp

	if !orig.Buttons[Allow].Checked {
		t.Error("clone shares button map with original")
	}
	if orig.Warning.Message != MsgDefaultGranted {
		t.Error("clone shares warning with original")
	}

	var nilSnap *Snapshot
	if nilSnap.Clone() != nil {
		t.Error("Clone of nil snapshot should be nil")
	}
}

func TestCheckedChoice(t *testing.T) {
	snap := &Snapshot{Buttons: map[Choice]ButtonState{
		Allow: {Shown: true, Enabled: true},
		Ask:   {Shown: true, Checked: true, Enabled: true},
		Deny:  {Shown: true, Enabled: true},
	}}
	if got := snap.CheckedChoice(); got != Ask {
		t.Errorf("CheckedChoice() = %q, want ask", got)
	}

	// Checked but hidden buttons do not count.
	snap.Buttons[Ask] = ButtonState{Checked: true}
	if got := snap.CheckedChoice(); got != "" {
		t.Errorf("CheckedChoice() = %q, want empty", got)
	}
}
