package domain

import (
	"testing"
	"time"

	"converzia_backend/platform/validator"
)

func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

var mergeNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestMergeNeverErasesKnownValues(t *testing.T) {
	current := NewQualificationFields()
	current.Name = strPtr("Ana")
	current.Zones = []string{"Palermo"}
	current.Budget = &Budget{Min: floatPtr(100000), Currency: "USD"}
	current.Garage = boolPtr(true)

	patches := []FieldsPatch{
		{},
		{Name: strPtr("   ")},
		{Zones: []string{"", "  "}},
		{Budget: &BudgetPatch{}},
		{Budget: &BudgetPatch{Min: floatPtr(0)}},
	}

	for i, patch := range patches {
		next, changed := Merge(current, patch, mergeNow)
		if len(changed) != 0 {
			t.Fatalf("patch %d: expected no changes, got %v", i, changed)
		}
		if next.Name == nil || *next.Name != "Ana" {
			t.Fatalf("patch %d: name erased", i)
		}
		if len(next.Zones) != 1 || next.Zones[0] != "Palermo" {
			t.Fatalf("patch %d: zones erased: %v", i, next.Zones)
		}
		if next.Budget == nil || next.Budget.Min == nil || *next.Budget.Min != 100000 {
			t.Fatalf("patch %d: budget erased", i)
		}
		if next.Garage == nil || !*next.Garage {
			t.Fatalf("patch %d: garage erased", i)
		}
	}
}

func TestMergeOverridesWithNewerValues(t *testing.T) {
	current := NewQualificationFields()
	current.Timing = strPtr("el año que viene")
	current.Budget = &Budget{Min: floatPtr(100000)}

	next, changed := Merge(current, FieldsPatch{
		Timing: strPtr("inmediato"),
		Budget: &BudgetPatch{Max: floatPtr(150000), Currency: strPtr("usd")},
		Zones:  []string{"Belgrano", "belgrano", "Núñez"},
	}, mergeNow)

	if *next.Timing != "inmediato" {
		t.Fatalf("expected timing override, got %q", *next.Timing)
	}
	if *next.Budget.Min != 100000 || *next.Budget.Max != 150000 || next.Budget.Currency != "USD" {
		t.Fatalf("expected subfield budget merge, got %+v", next.Budget)
	}
	if len(next.Zones) != 2 {
		t.Fatalf("expected deduplicated zones, got %v", next.Zones)
	}
	if len(changed) != 4 {
		t.Fatalf("expected 4 changed attributes, got %v", changed)
	}
	if current.Budget.Max != nil {
		t.Fatalf("merge must not mutate the current record")
	}
}

func TestMergeConsentIsMonotonic(t *testing.T) {
	current := NewQualificationFields()

	next, _ := Merge(current, FieldsPatch{ConsentEvidence: strPtr("Sí, acepto")}, mergeNow)
	if !next.ConsentGranted() {
		t.Fatalf("expected consent to be granted")
	}

	later, changed := Merge(next, FieldsPatch{ConsentEvidence: strPtr("no")}, mergeNow.Add(time.Hour))
	if !later.ConsentGranted() {
		t.Fatalf("consent must never be cleared")
	}
	if len(changed) != 0 {
		t.Fatalf("expected no change, got %v", changed)
	}
}

func TestMergeIgnoresIdentifierAsConsent(t *testing.T) {
	next, _ := Merge(NewQualificationFields(), FieldsPatch{ConsentEvidence: strPtr("mi DNI es 30123456")}, mergeNow)
	if next.ConsentGranted() {
		t.Fatalf("disclosing an identifier must not grant consent")
	}
}

func TestSanitizePatchDropsOnlyInvalidAttributes(t *testing.T) {
	v := validator.New()
	patch := FieldsPatch{
		Name:     strPtr("Ana"),
		Email:    strPtr("not-an-email"),
		Bedrooms: intPtr(45),
		Budget:   &BudgetPatch{Min: floatPtr(-5), Max: floatPtr(200000)},
		Zones:    []string{"Palermo"},
	}

	clean, dropped := SanitizePatch(v, patch)

	if clean.Name == nil || *clean.Name != "Ana" {
		t.Fatalf("valid name was dropped")
	}
	if clean.Email != nil || clean.Bedrooms != nil {
		t.Fatalf("invalid attributes survived: %+v", clean)
	}
	if clean.Budget == nil || clean.Budget.Min != nil || clean.Budget.Max == nil {
		t.Fatalf("expected only budget.min dropped, got %+v", clean.Budget)
	}
	want := []string{"Bedrooms", "Budget.Min", "Email"}
	if len(dropped) != len(want) {
		t.Fatalf("expected dropped %v, got %v", want, dropped)
	}
	for i := range want {
		if dropped[i] != want[i] {
			t.Fatalf("expected dropped %v, got %v", want, dropped)
		}
	}
	if patch.Budget.Min == nil {
		t.Fatalf("sanitize must not mutate the caller's patch")
	}
}
