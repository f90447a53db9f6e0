package state

import "testing"

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New()
	v := NewVector("mount", "COORD", KindNumber)
	v.SetNumber(NumberElement{Name: "RA", Value: 1.0})
	s.DefineVector(v)

	snap := s.Snapshot()

	// Mutate the live mirror after the snapshot was taken.
	live := s.Vector("mount", "COORD")
	live.SetNumber(NumberElement{Name: "RA", Value: 99.0})

	el, ok := snap.Vector("mount", "COORD").Number("RA")
	if !ok || el.Value != 1.0 {
		t.Fatalf("snapshot observed mutation to live mirror: %+v", el)
	}
}

func TestDeletePropertyRemovesWholeDeviceWhenNameEmpty(t *testing.T) {
	s := New()
	s.DefineVector(NewVector("mount", "A", KindText))
	s.DefineVector(NewVector("mount", "B", KindText))

	s.DeleteProperty("mount", "")

	if s.Device("mount") != nil {
		t.Fatalf("expected device removed")
	}
}

func TestEnforceSwitchRuleOneOfMany(t *testing.T) {
	v := NewVector("d", "R", KindSwitch)
	v.Rule = RuleOneOfMany
	v.SetSwitch(SwitchElement{Name: "A", Value: SwitchOn})
	v.SetSwitch(SwitchElement{Name: "B", Value: SwitchOff})
	if err := v.EnforceSwitchRule(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	v.SetSwitch(SwitchElement{Name: "B", Value: SwitchOn})
	if err := v.EnforceSwitchRule(); err == nil {
		t.Fatalf("expected violation with two On elements")
	}
}

func TestElementOrderPreserved(t *testing.T) {
	v := NewVector("d", "V", KindText)
	v.SetText(TextElement{Name: "z", Value: "1"})
	v.SetText(TextElement{Name: "a", Value: "2"})
	v.SetText(TextElement{Name: "z", Value: "3"}) // revalue, must not move

	names := v.ElementNames()
	if len(names) != 2 || names[0] != "z" || names[1] != "a" {
		t.Fatalf("expected order [z a], got %v", names)
	}
}
