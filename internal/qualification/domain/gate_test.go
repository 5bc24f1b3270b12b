package domain

import "testing"

func TestEvaluateGateRequiresFourOfSixCoreFields(t *testing.T) {
	setters := []func(*QualificationFields){
		func(f *QualificationFields) { f.Name = strPtr("Ana") },
		func(f *QualificationFields) { f.Budget = &Budget{Max: floatPtr(120000)} },
		func(f *QualificationFields) { f.Zones = []string{"Palermo"} },
		func(f *QualificationFields) { f.Timing = strPtr("inmediato") },
		func(f *QualificationFields) { f.Purpose = strPtr("vivienda") },
		func(f *QualificationFields) { f.Bedrooms = intPtr(2) },
	}

	// Every subset of the six core fields.
	for mask := 0; mask < 1<<len(setters); mask++ {
		fields := NewQualificationFields()
		present := 0
		for i, set := range setters {
			if mask&(1<<i) != 0 {
				set(&fields)
				present++
			}
		}
		got := EvaluateGate(fields)
		if got.Ready != (present >= 4) {
			t.Fatalf("mask %06b: %d present, ready=%v", mask, present, got.Ready)
		}
		if len(got.Present)+len(got.Missing) != len(CoreFields) {
			t.Fatalf("mask %06b: present+missing must cover all core fields", mask)
		}
	}
}

func TestEvaluateGateIgnoresNonCoreFields(t *testing.T) {
	fields := NewQualificationFields()
	fields.Email = strPtr("ana@example.com")
	fields.Garage = boolPtr(true)
	fields.Amenities = []string{"pileta"}
	fields.IsInvestor = boolPtr(true)
	fields.Budget = &Budget{Currency: "USD"}

	if EvaluateGate(fields).Ready {
		t.Fatalf("non-core fields must not open the gate")
	}
}

func TestEvaluateGateEmptyFields(t *testing.T) {
	got := EvaluateGate(NewQualificationFields())
	if got.Ready || len(got.Missing) != 6 {
		t.Fatalf("expected all six fields missing, got %+v", got)
	}
}
