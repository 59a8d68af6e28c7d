package extract

// Thresholds holds the numeric heuristics used to tell phones, pincodes, ages and
// amounts apart. They are deliberately simple cutoffs, not domain invariants.
type Thresholds struct {
	// PhoneDigits is the exact digit count of a phone number.
	PhoneDigits int `yaml:"phone_digits" json:"phone_digits"`
	// PhoneLeadingDigits lists the digits a phone number may start with.
	PhoneLeadingDigits string `yaml:"phone_leading_digits" json:"phone_leading_digits"`
	// PincodeDigits is the exact digit count of a postal code.
	PincodeDigits int `yaml:"pincode_digits" json:"pincode_digits"`
	// AgeMaxDigits bounds the digit count of an age ("32 years").
	AgeMaxDigits int `yaml:"age_max_digits" json:"age_max_digits"`
	// AgeMax is the largest accepted age.
	AgeMax int `yaml:"age_max" json:"age_max"`
	// AmountMin: numbers strictly above this are amounts.
	AmountMin float64 `yaml:"amount_min" json:"amount_min"`
	// MinNameWords is the word count a capitalized run needs to be a name
	// when no cue ("name is", "Mr.") precedes it.
	MinNameWords int `yaml:"min_name_words" json:"min_name_words"`
	// MaxNameWords caps the length of a name candidate.
	MaxNameWords int `yaml:"max_name_words" json:"max_name_words"`
	// MaxValuesPerField caps the values kept per field in one extraction. 0 = unlimited.
	MaxValuesPerField int `yaml:"max_values_per_field" json:"max_values_per_field"`
}

// DefaultThresholds returns the cutoffs used by the stock rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PhoneDigits:        10,
		PhoneLeadingDigits: "6789",
		PincodeDigits:      6,
		AgeMaxDigits:       3,
		AgeMax:             120,
		AmountMin:          1000,
		MinNameWords:       2,
		MaxNameWords:       3,
		MaxValuesPerField:  50,
	}
}

// withDefaults fills zero fields from DefaultThresholds so partially specified
// config files keep working.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.PhoneDigits <= 0 {
		t.PhoneDigits = d.PhoneDigits
	}
	if t.PhoneLeadingDigits == "" {
		t.PhoneLeadingDigits = d.PhoneLeadingDigits
	}
	if t.PincodeDigits <= 0 {
		t.PincodeDigits = d.PincodeDigits
	}
	if t.AgeMaxDigits <= 0 {
		t.AgeMaxDigits = d.AgeMaxDigits
	}
	if t.AgeMax <= 0 {
		t.AgeMax = d.AgeMax
	}
	if t.AmountMin <= 0 {
		t.AmountMin = d.AmountMin
	}
	if t.MinNameWords <= 0 {
		t.MinNameWords = d.MinNameWords
	}
	if t.MaxNameWords <= 0 {
		t.MaxNameWords = d.MaxNameWords
	}
	if t.MinNameWords > t.MaxNameWords {
		t.MinNameWords = t.MaxNameWords
	}
	if t.MaxValuesPerField < 0 {
		t.MaxValuesPerField = 0
	}
	return t
}

// isPhoneShaped reports whether a bare digit string looks like a phone number.
func (t Thresholds) isPhoneShaped(digits string) bool {
	if len(digits) != t.PhoneDigits || !isDigits(digits) {
		return false
	}
	for _, r := range t.PhoneLeadingDigits {
		if rune(digits[0]) == r {
			return true
		}
	}
	return false
}

// isPincodeShaped reports whether a bare digit string looks like a postal code.
func (t Thresholds) isPincodeShaped(digits string) bool {
	return len(digits) == t.PincodeDigits && isDigits(digits)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
