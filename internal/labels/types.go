package labels

import (
	"image"
	"strings"
)

// Attribute names one of the six fields of a medicine label.
type Attribute string

const (
	MedicineName Attribute = "medicine_name"
	Composition  Attribute = "composition"
	Uses         Attribute = "uses"
	DosageAmount Attribute = "dosage_amount"
	DosageForm   Attribute = "dosage_form"
	Quantity     Attribute = "quantity"
)

// Attributes returns the six attributes in record order.
func Attributes() []Attribute {
	return []Attribute{MedicineName, Composition, Uses, DosageAmount, DosageForm, Quantity}
}

// ParseAttribute maps a detector class name onto an Attribute. Matching is
// case-insensitive. ok is false for anything that is not a label field.
func ParseAttribute(name string) (a Attribute, ok bool) {
	a = Attribute(strings.ToLower(name))
	switch a {
	case MedicineName, Composition, Uses, DosageAmount, DosageForm, Quantity:
		return a, true
	}
	return "", false
}

// BoundingBox is a detection box as x1, y1, x2, y2 in source image pixels.
type BoundingBox [4]float64

// DetectionRegion is one region reported by the object detector, already
// cropped out of the source image.
type DetectionRegion struct {
	// Attribute is the detector's class name, unvalidated.
	Attribute  string
	Confidence float64
	Box        BoundingBox
	Image      image.Image
}

// FieldResult is the reading kept for one field.
type FieldResult struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Angle       float64     `json:"angle"`
}

// LabelRecord holds the kept reading for each field. Nil fields encode as
// null, never omitted.
type LabelRecord struct {
	MedicineName *FieldResult `json:"medicine_name"`
	Composition  *FieldResult `json:"composition"`
	Uses         *FieldResult `json:"uses"`
	DosageAmount *FieldResult `json:"dosage_amount"`
	DosageForm   *FieldResult `json:"dosage_form"`
	Quantity     *FieldResult `json:"quantity"`
}

// Field returns the reading for a, or nil.
func (r LabelRecord) Field(a Attribute) *FieldResult {
	if p := r.slot(a); p != nil {
		return *p
	}
	return nil
}

// Text returns the text for a, or "" when the field is empty.
func (r LabelRecord) Text(a Attribute) string {
	if f := r.Field(a); f != nil {
		return f.Text
	}
	return ""
}

// Empty reports whether no field holds a reading.
func (r LabelRecord) Empty() bool {
	for _, a := range Attributes() {
		if r.Field(a) != nil {
			return false
		}
	}
	return true
}

func (r *LabelRecord) set(a Attribute, f *FieldResult) {
	if p := r.slot(a); p != nil {
		*p = f
	}
}

func (r *LabelRecord) slot(a Attribute) **FieldResult {
	switch a {
	case MedicineName:
		return &r.MedicineName
	case Composition:
		return &r.Composition
	case Uses:
		return &r.Uses
	case DosageAmount:
		return &r.DosageAmount
	case DosageForm:
		return &r.DosageForm
	case Quantity:
		return &r.Quantity
	}
	return nil
}
