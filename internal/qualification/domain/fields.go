package domain

import (
	"strings"
	"time"
)

// FieldsSchemaVersion is stamped on every persisted QualificationFields.
const FieldsSchemaVersion = 2

// Core field names, in the order the completeness gate reports them.
const (
	FieldName     = "name"
	FieldBudget   = "budget"
	FieldZones    = "zones"
	FieldTiming   = "timing"
	FieldPurpose  = "purpose"
	FieldBedrooms = "bedrooms"
)

// CoreFields lists the six attributes counted by the completeness gate.
var CoreFields = []string{FieldName, FieldBudget, FieldZones, FieldTiming, FieldPurpose, FieldBedrooms}

// FinePreferenceCount is the number of optional preference attributes that feed
// the completeness bonus.
const FinePreferenceCount = 9

// Budget is the price range a lead declared.
type Budget struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// HasValue reports whether either bound is known.
func (b *Budget) HasValue() bool {
	return b != nil && (b.Min != nil || b.Max != nil)
}

// Consent records an explicit affirmative from the lead. It is monotonic.
type Consent struct {
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"grantedAt,omitempty"`
	Evidence  string     `json:"evidence,omitempty"`
}

// QualificationFields is the sparse record accumulated during a conversation.
// Every attribute is optional; nil means unknown.
type QualificationFields struct {
	SchemaVersion int `json:"schemaVersion"`

	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`

	Budget       *Budget  `json:"budget,omitempty"`
	Zones        []string `json:"zones,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	PropertyType *string  `json:"propertyType,omitempty"`
	Timing       *string  `json:"timing,omitempty"`
	Purpose      *string  `json:"purpose,omitempty"`

	Garage          *bool    `json:"garage,omitempty"`
	Amenities       []string `json:"amenities,omitempty"`
	FloorPreference *string  `json:"floorPreference,omitempty"`
	Orientation     *string  `json:"orientation,omitempty"`
	Balcony         *bool    `json:"balcony,omitempty"`
	Terrace         *bool    `json:"terrace,omitempty"`
	PetsAllowed     *bool    `json:"petsAllowed,omitempty"`
	MinArea         *float64 `json:"minArea,omitempty"`
	MaxArea         *float64 `json:"maxArea,omitempty"`

	NeedsFinancing      *bool `json:"needsFinancing,omitempty"`
	MortgagePreapproved *bool `json:"mortgagePreapproved,omitempty"`
	IsInvestor          *bool `json:"isInvestor,omitempty"`

	Consent *Consent `json:"consent,omitempty"`
}

// NewQualificationFields returns an empty record at the current schema version.
func NewQualificationFields() QualificationFields {
	return QualificationFields{SchemaVersion: FieldsSchemaVersion}
}

// HasCoreField reports whether the named core attribute is known.
func (f QualificationFields) HasCoreField(name string) bool {
	switch name {
	case FieldName:
		return hasText(f.Name)
	case FieldBudget:
		return f.Budget.HasValue()
	case FieldZones:
		return len(f.Zones) > 0
	case FieldTiming:
		return hasText(f.Timing)
	case FieldPurpose:
		return hasText(f.Purpose)
	case FieldBedrooms:
		return f.Bedrooms != nil
	}
	return false
}

// MissingCoreFields lists absent core attributes in gate order.
func (f QualificationFields) MissingCoreFields() []string {
	missing := make([]string, 0, len(CoreFields))
	for _, name := range CoreFields {
		if !f.HasCoreField(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// FilledFinePreferences counts the known fine preference attributes.
func (f QualificationFields) FilledFinePreferences() int {
	count := 0
	for _, ok := range []bool{
		f.Garage != nil,
		len(f.Amenities) > 0,
		hasText(f.FloorPreference),
		hasText(f.Orientation),
		f.Balcony != nil,
		f.Terrace != nil,
		f.PetsAllowed != nil,
		f.MinArea != nil,
		f.MaxArea != nil,
	} {
		if ok {
			count++
		}
	}
	return count
}

// IsEmpty reports whether nothing at all is known about the lead.
func (f QualificationFields) IsEmpty() bool {
	if hasText(f.Email) || hasText(f.PropertyType) || f.Bathrooms != nil {
		return false
	}
	if f.NeedsFinancing != nil || f.MortgagePreapproved != nil || f.IsInvestor != nil {
		return false
	}
	return len(f.MissingCoreFields()) == len(CoreFields) && f.FilledFinePreferences() == 0
}

// ConsentGranted reports whether explicit consent was recorded.
func (f QualificationFields) ConsentGranted() bool {
	return f.Consent != nil && f.Consent.Granted
}

func hasText(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

// BudgetPatch carries extracted budget bounds.
type BudgetPatch struct {
	Min      *float64 `json:"min,omitempty" validate:"omitempty,gt=0"`
	Max      *float64 `json:"max,omitempty" validate:"omitempty,gt=0"`
	Currency *string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// FieldsPatch is what the extraction collaborator returns for one message.
// Consent is never set directly: ConsentEvidence carries the lead's literal
// words and is only honoured when it is an unambiguous affirmative.
type FieldsPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`

	Budget       *BudgetPatch `json:"budget,omitempty"`
	Zones        []string     `json:"zones,omitempty" validate:"omitempty,max=10,dive,min=1,max=80"`
	Bedrooms     *int         `json:"bedrooms,omitempty" validate:"omitempty,gte=0,lte=20"`
	Bathrooms    *int         `json:"bathrooms,omitempty" validate:"omitempty,gte=0,lte=20"`
	PropertyType *string      `json:"propertyType,omitempty" validate:"omitempty,max=60"`
	Timing       *string      `json:"timing,omitempty" validate:"omitempty,max=120"`
	Purpose      *string      `json:"purpose,omitempty" validate:"omitempty,max=120"`

	Garage          *bool    `json:"garage,omitempty"`
	Amenities       []string `json:"amenities,omitempty" validate:"omitempty,max=20,dive,min=1,max=60"`
	FloorPreference *string  `json:"floorPreference,omitempty" validate:"omitempty,max=60"`
	Orientation     *string  `json:"orientation,omitempty" validate:"omitempty,max=60"`
	Balcony         *bool    `json:"balcony,omitempty"`
	Terrace         *bool    `json:"terrace,omitempty"`
	PetsAllowed     *bool    `json:"petsAllowed,omitempty"`
	MinArea         *float64 `json:"minArea,omitempty" validate:"omitempty,gt=0,lte=100000"`
	MaxArea         *float64 `json:"maxArea,omitempty" validate:"omitempty,gt=0,lte=100000"`

	NeedsFinancing      *bool `json:"needsFinancing,omitempty"`
	MortgagePreapproved *bool `json:"mortgagePreapproved,omitempty"`
	IsInvestor          *bool `json:"isInvestor,omitempty"`

	ConsentEvidence *string `json:"consentEvidence,omitempty" validate:"omitempty,max=280"`
}

// IsEmpty reports whether the patch carries no attribute at all.
func (p FieldsPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Budget == nil && len(p.Zones) == 0 &&
		p.Bedrooms == nil && p.Bathrooms == nil && p.PropertyType == nil && p.Timing == nil &&
		p.Purpose == nil && p.Garage == nil && len(p.Amenities) == 0 && p.FloorPreference == nil &&
		p.Orientation == nil && p.Balcony == nil && p.Terrace == nil && p.PetsAllowed == nil &&
		p.MinArea == nil && p.MaxArea == nil && p.NeedsFinancing == nil &&
		p.MortgagePreapproved == nil && p.IsInvestor == nil && p.ConsentEvidence == nil
}
