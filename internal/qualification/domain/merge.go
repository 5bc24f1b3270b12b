package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// StructValidator is satisfied by platform/validator.Validator.
type StructValidator interface {
	Struct(s any) error
}

// SanitizePatch validates a patch at the merge boundary. Invalid attributes
// are dropped one by one and their names returned; valid ones survive.
func SanitizePatch(v StructValidator, patch FieldsPatch) (FieldsPatch, []string) {
	patch = normalizePatch(patch)
	if v == nil {
		return patch, nil
	}

	err := v.Struct(patch)
	if err == nil {
		return patch, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldsPatch{}, []string{"*"}
	}

	dropped := make(map[string]bool)
	for _, fe := range verrs {
		name := patchFieldName(fe.StructNamespace())
		if name == "" || dropped[name] {
			continue
		}
		dropPatchField(&patch, name)
		dropped[name] = true
	}

	names := make([]string, 0, len(dropped))
	for name := range dropped {
		names = append(names, name)
	}
	sort.Strings(names)
	return patch, names
}

// patchFieldName turns "FieldsPatch.Budget.Min" into "Budget.Min" and
// "FieldsPatch.Zones[2]" into "Zones".
func patchFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return ""
	}
	head := parts[1]
	if idx := strings.IndexByte(head, '['); idx >= 0 {
		head = head[:idx]
	}
	if head == "Budget" && len(parts) > 2 {
		return head + "." + parts[2]
	}
	return head
}

func dropPatchField(p *FieldsPatch, name string) {
	switch name {
	case "Name":
		p.Name = nil
	case "Email":
		p.Email = nil
	case "Budget.Min":
		if p.Budget != nil {
			p.Budget.Min = nil
		}
	case "Budget.Max":
		if p.Budget != nil {
			p.Budget.Max = nil
		}
	case "Budget.Currency":
		if p.Budget != nil {
			p.Budget.Currency = nil
		}
	case "Budget":
		p.Budget = nil
	case "Zones":
		p.Zones = nil
	case "Bedrooms":
		p.Bedrooms = nil
	case "Bathrooms":
		p.Bathrooms = nil
	case "PropertyType":
		p.PropertyType = nil
	case "Timing":
		p.Timing = nil
	case "Purpose":
		p.Purpose = nil
	case "Amenities":
		p.Amenities = nil
	case "FloorPreference":
		p.FloorPreference = nil
	case "Orientation":
		p.Orientation = nil
	case "MinArea":
		p.MinArea = nil
	case "MaxArea":
		p.MaxArea = nil
	case "ConsentEvidence":
		p.ConsentEvidence = nil
	}
}

// normalizePatch trims text, lowercases email and removes blank list items so
// that blank values are treated as absent before validation.
func normalizePatch(p FieldsPatch) FieldsPatch {
	p.Name = trimmedOrNil(p.Name)
	p.Email = trimmedOrNil(p.Email)
	if p.Email != nil {
		lower := strings.ToLower(*p.Email)
		p.Email = &lower
	}
	p.PropertyType = trimmedOrNil(p.PropertyType)
	p.Timing = trimmedOrNil(p.Timing)
	p.Purpose = trimmedOrNil(p.Purpose)
	p.FloorPreference = trimmedOrNil(p.FloorPreference)
	p.Orientation = trimmedOrNil(p.Orientation)
	p.ConsentEvidence = trimmedOrNil(p.ConsentEvidence)
	p.Zones = cleanList(p.Zones)
	p.Amenities = cleanList(p.Amenities)
	if p.Budget != nil {
		budget := *p.Budget
		p.Budget = &budget
		p.Budget.Currency = trimmedOrNil(p.Budget.Currency)
		if p.Budget.Currency != nil {
			upper := strings.ToUpper(*p.Budget.Currency)
			p.Budget.Currency = &upper
		}
		if p.Budget.Min == nil && p.Budget.Max == nil && p.Budget.Currency == nil {
			p.Budget = nil
		}
	}
	return p
}

// Merge applies patch on top of current. Non-empty patch values override,
// absent or empty values never erase, budget bounds merge individually and
// consent can only move from not granted to granted.
func Merge(current QualificationFields, patch FieldsPatch, now time.Time) (QualificationFields, []string) {
	next := current.clone()
	next.SchemaVersion = FieldsSchemaVersion
	var changed []string

	setText := func(name string, dst **string, src *string) {
		if src == nil || strings.TrimSpace(*src) == "" {
			return
		}
		value := strings.TrimSpace(*src)
		if *dst != nil && **dst == value {
			return
		}
		*dst = &value
		changed = append(changed, name)
	}
	setInt := func(name string, dst **int, src *int) {
		if src == nil || (*dst != nil && **dst == *src) {
			return
		}
		value := *src
		*dst = &value
		changed = append(changed, name)
	}
	setFloat := func(name string, dst **float64, src *float64) {
		if src == nil || *src <= 0 || (*dst != nil && **dst == *src) {
			return
		}
		value := *src
		*dst = &value
		changed = append(changed, name)
	}
	setBool := func(name string, dst **bool, src *bool) {
		if src == nil || (*dst != nil && **dst == *src) {
			return
		}
		value := *src
		*dst = &value
		changed = append(changed, name)
	}
	setList := func(name string, dst *[]string, src []string) {
		cleaned := cleanList(src)
		if len(cleaned) == 0 || equalLists(*dst, cleaned) {
			return
		}
		*dst = cleaned
		changed = append(changed, name)
	}

	setText("name", &next.Name, patch.Name)
	if patch.Email != nil {
		lower := strings.ToLower(strings.TrimSpace(*patch.Email))
		setText("email", &next.Email, &lower)
	}

	if patch.Budget != nil {
		if next.Budget == nil {
			next.Budget = &Budget{}
		}
		setFloat("budget.min", &next.Budget.Min, patch.Budget.Min)
		setFloat("budget.max", &next.Budget.Max, patch.Budget.Max)
		if patch.Budget.Currency != nil && strings.TrimSpace(*patch.Budget.Currency) != "" {
			currency := strings.ToUpper(strings.TrimSpace(*patch.Budget.Currency))
			if next.Budget.Currency != currency {
				next.Budget.Currency = currency
				changed = append(changed, "budget.currency")
			}
		}
		if !next.Budget.HasValue() && next.Budget.Currency == "" {
			next.Budget = nil
		}
	}

	setList("zones", &next.Zones, patch.Zones)
	setInt("bedrooms", &next.Bedrooms, patch.Bedrooms)
	setInt("bathrooms", &next.Bathrooms, patch.Bathrooms)
	setText("propertyType", &next.PropertyType, patch.PropertyType)
	setText("timing", &next.Timing, patch.Timing)
	setText("purpose", &next.Purpose, patch.Purpose)

	setBool("garage", &next.Garage, patch.Garage)
	setList("amenities", &next.Amenities, patch.Amenities)
	setText("floorPreference", &next.FloorPreference, patch.FloorPreference)
	setText("orientation", &next.Orientation, patch.Orientation)
	setBool("balcony", &next.Balcony, patch.Balcony)
	setBool("terrace", &next.Terrace, patch.Terrace)
	setBool("petsAllowed", &next.PetsAllowed, patch.PetsAllowed)
	setFloat("minArea", &next.MinArea, patch.MinArea)
	setFloat("maxArea", &next.MaxArea, patch.MaxArea)

	setBool("needsFinancing", &next.NeedsFinancing, patch.NeedsFinancing)
	setBool("mortgagePreapproved", &next.MortgagePreapproved, patch.MortgagePreapproved)
	setBool("isInvestor", &next.IsInvestor, patch.IsInvestor)

	if !next.ConsentGranted() && patch.ConsentEvidence != nil && IsAffirmativeConsent(*patch.ConsentEvidence) {
		at := now.UTC()
		next.Consent = &Consent{Granted: true, GrantedAt: &at, Evidence: strings.TrimSpace(*patch.ConsentEvidence)}
		changed = append(changed, "consent")
	}

	return next, changed
}

func (f QualificationFields) clone() QualificationFields {
	out := f
	if f.Budget != nil {
		b := *f.Budget
		out.Budget = &b
	}
	if f.Consent != nil {
		c := *f.Consent
		out.Consent = &c
	}
	out.Zones = append([]string(nil), f.Zones...)
	out.Amenities = append([]string(nil), f.Amenities...)
	if len(out.Zones) == 0 {
		out.Zones = nil
	}
	if len(out.Amenities) == 0 {
		out.Amenities = nil
	}
	return out
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.Join(strings.Fields(v), " ")
		key := strings.ToLower(trimmed)
		if trimmed == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
