package rules

import (
	"sort"
	"strings"
)

// Dataset describes the data a ruleset was trained on. Its only job in
// canopy is display: categorical features are usually index-encoded
// before training, so a raw term reads "job > 1.5" when the user means
// "job in {student, technician}". FormatTerm undoes that encoding.
type Dataset struct {
	Name     string        `yaml:"name,omitempty" json:"name,omitempty"`
	Features []FeatureMeta `yaml:"features" json:"features"`
}

// FeatureMeta names one feature. Values lists the categorical labels in
// encoding order (label i encodes as the value i); numeric features
// leave it empty.
type FeatureMeta struct {
	Name   string   `yaml:"name" json:"name"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Feature returns the metadata for the named feature, or nil when the
// dataset does not describe it.
func (d *Dataset) Feature(name string) *FeatureMeta {
	if d == nil {
		return nil
	}
	for i := range d.Features {
		if d.Features[i].Name == name {
			return &d.Features[i]
		}
	}
	return nil
}

// FormatTerm renders t for display. Terms over categorical features are
// rewritten against the labels the threshold selects; everything else
// falls back to the term's plain string form. A nil dataset is valid
// and always falls back.
func (d *Dataset) FormatTerm(t Term) string {
	fm := d.Feature(t.Feature)
	if fm == nil || len(fm.Values) == 0 {
		return t.String()
	}
	var selected []string
	for i, label := range fm.Values {
		if t.Op.holds(float64(i), t.Threshold) {
			selected = append(selected, label)
		}
	}
	switch {
	case len(selected) == 0 || len(selected) == len(fm.Values):
		// Nothing or everything selected: the label form adds no
		// information, keep the raw term.
		return t.String()
	case len(selected) == 1:
		return t.Feature + " = " + selected[0]
	default:
		sort.Strings(selected)
		return t.Feature + " in {" + strings.Join(selected, ", ") + "}"
	}
}

// holds evaluates "value op threshold".
func (op Operator) holds(value, threshold float64) bool {
	switch op {
	case OpGT:
		return value > threshold
	case OpGE:
		return value >= threshold
	case OpLT:
		return value < threshold
	case OpLE:
		return value <= threshold
	case OpEQ:
		return value == threshold
	case OpNE:
		return value != threshold
	}
	return false
}
