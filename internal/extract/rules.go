package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// Kind selects how a rule finds candidates in the text.
type Kind int

const (
	// KindRegex runs Pattern over the text and takes capture Group (0 = whole match).
	KindRegex Kind = iota
	// KindVocabulary matches whole words from Vocabulary, case-insensitively.
	KindVocabulary
	// KindCapitalized finds runs of capitalized words (person names).
	KindCapitalized
	// KindKeyValue turns "Label: value" lines into fields named after the label.
	KindKeyValue
)

func (k Kind) String() string {
	switch k {
	case KindRegex:
		return "regex"
	case KindVocabulary:
		return "vocabulary"
	case KindCapitalized:
		return "capitalized"
	case KindKeyValue:
		return "key_value"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Post is the normalization applied to every accepted value.
type Post int

const (
	PostTrim Post = iota
	PostLower
	PostDigits
	PostTitle
	PostCompactSpace
	// PostNumber strips grouping commas and a trailing ".00".
	PostNumber
)

// Match is one candidate value found by a rule.
type Match struct {
	// Value is the raw matched text (capture group or vocabulary hit).
	Value string
	// Start and End are byte offsets of Value within Text.
	Start, End int
	// Text is the full input the rule scanned.
	Text string
	// Groups holds every capture group of a regex match ("" when unmatched).
	Groups []string
}

// Before returns up to n bytes of text preceding the match.
func (m Match) Before(n int) string {
	lo := m.Start - n
	if lo < 0 {
		lo = 0
	}
	return m.Text[lo:m.Start]
}

// PrevByte returns the byte before the match, or 0 at the start of the text.
func (m Match) PrevByte() byte {
	if m.Start == 0 {
		return 0
	}
	return m.Text[m.Start-1]
}

// NextByte returns the byte after the match, or 0 at the end of the text.
func (m Match) NextByte() byte {
	if m.End >= len(m.Text) {
		return 0
	}
	return m.Text[m.End]
}

// Rule is one entry of the extraction table: which field it fills, how it
// matches, how matches are normalized, and an optional acceptance predicate.
type Rule struct {
	// ID names the rule in logs and failure reports.
	ID    string
	Field fields.Name
	Kind  Kind

	Pattern *regexp.Regexp
	Group   int

	// Vocabulary terms in display form. Matches are reported in this form.
	Vocabulary []string

	Post Post
	// Accept filters candidates after normalization. nil accepts all.
	Accept func(m Match, value string) bool

	vocabRE    *regexp.Regexp
	vocabIndex map[string]string
}

// RegexRule builds a KindRegex rule.
func RegexRule(id string, field fields.Name, pattern string, group int, post Post, accept func(Match, string) bool) Rule {
	return Rule{
		ID:      id,
		Field:   field,
		Kind:    KindRegex,
		Pattern: regexp.MustCompile(pattern),
		Group:   group,
		Post:    post,
		Accept:  accept,
	}
}

// VocabularyRule builds a KindVocabulary rule. Longer terms win over their prefixes.
func VocabularyRule(id string, field fields.Name, terms []string) Rule {
	r := Rule{ID: id, Field: field, Kind: KindVocabulary, Vocabulary: terms, Post: PostTrim}
	r.compileVocabulary()
	return r
}

func (r *Rule) compileVocabulary() {
	if len(r.Vocabulary) == 0 {
		return
	}
	sorted := make([]string, len(r.Vocabulary))
	copy(sorted, r.Vocabulary)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	r.vocabIndex = make(map[string]string, len(sorted))
	alts := make([]string, 0, len(sorted))
	for _, term := range sorted {
		key := vocabKey(term)
		if key == "" {
			continue
		}
		if _, dup := r.vocabIndex[key]; dup {
			continue
		}
		r.vocabIndex[key] = term
		parts := strings.Fields(regexp.QuoteMeta(term))
		alts = append(alts, strings.Join(parts, `\s+`))
	}
	r.vocabRE = regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func vocabKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

var (
	FieldEmail       = fields.MustName("Email")
	FieldPhone       = fields.MustName("Phone")
	FieldPincode     = fields.MustName("Pincode")
	FieldAge         = fields.MustName("Age")
	FieldAmount      = fields.MustName("Amount")
	FieldDate        = fields.MustName("Date")
	FieldURL         = fields.MustName("Url")
	FieldName        = fields.MustName("Name")
	FieldCity        = fields.MustName("City")
	FieldDesignation = fields.MustName("Designation")
	FieldGender      = fields.MustName("Gender")
)

// phoneKeywordRE finds phone cues shortly before a 6-digit number, which then
// is an OTP or partial phone rather than a pincode.
var phoneKeywordRE = regexp.MustCompile(`(?i)(?:phone|mobile|\btel\b|contact\s*no|whatsapp|\botp\b)`)

const monthAlt = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// DefaultRules returns the stock rule table, in evaluation order.
func DefaultRules(th Thresholds) []Rule {
	th = th.withDefaults()

	phoneRE := fmt.Sprintf(`(?:\+91[\s-]?|\b)([%s]\d{%d})\b`,
		regexp.QuoteMeta(th.PhoneLeadingDigits), th.PhoneDigits-1)
	pincodeRE := fmt.Sprintf(`\b(\d{%d})\b`, th.PincodeDigits)

	return []Rule{
		RegexRule("email", FieldEmail,
			`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`, 0, PostLower, nil),

		RegexRule("phone", FieldPhone, phoneRE, 1, PostDigits, nil),

		RegexRule("pincode", FieldPincode, pincodeRE, 1, PostDigits, acceptPincode),

		RegexRule("age_suffix", FieldAge,
			fmt.Sprintf(`(?i)\b(\d{1,%d})\s*(?:years?|yrs?)\b`, th.AgeMaxDigits), 1, PostDigits, acceptAge(th)),
		RegexRule("age_prefix", FieldAge,
			fmt.Sprintf(`(?i)\bage[d]?\s*(?:is|:|-|=)?\s*(\d{1,%d})\b`, th.AgeMaxDigits), 1, PostDigits, acceptAge(th)),

		RegexRule("amount", FieldAmount,
			`(?i)(₹|\$|\b(?:rs\.?|inr|usd))?\s*(\d{1,3}(?:,\d{2,3})+(?:\.\d+)?|\d+(?:\.\d+)?)`, 2, PostNumber, acceptAmount(th)),

		RegexRule("date_iso", FieldDate, `\b(\d{4}-\d{2}-\d{2})\b`, 1, PostTrim, nil),
		RegexRule("date_numeric", FieldDate, `\b(\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2}))\b`, 1, PostTrim, acceptNumericDate),
		RegexRule("date_day_month", FieldDate,
			`(?i)\b(\d{1,2}(?:st|nd|rd|th)?\s+`+monthAlt+`\.?,?\s+\d{4})\b`, 1, PostCompactSpace, nil),
		RegexRule("date_month_day", FieldDate,
			`(?i)\b(`+monthAlt+`\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\b`, 1, PostCompactSpace, nil),

		RegexRule("url", FieldURL, `(?i)\b(?:https?://|www\.)[^\s<>"']*[^\s<>"'.,;:!?)\]]`, 0, PostTrim, acceptURL),

		{ID: "name", Field: FieldName, Kind: KindCapitalized, Post: PostCompactSpace},

		VocabularyRule("city", FieldCity, Cities),
		VocabularyRule("designation", FieldDesignation, Designations),
		VocabularyRule("gender", FieldGender, Genders),

		{ID: "key_value", Kind: KindKeyValue, Post: PostCompactSpace},
	}
}

func acceptPincode(m Match, _ string) bool {
	if phoneKeywordRE.MatchString(m.Before(20)) {
		return false
	}
	if isCurrencyPrefix(m.Before(4)) {
		return false
	}
	// Part of a decimal, grouped number or date.
	switch m.PrevByte() {
	case '.', ',', '/':
		return false
	}
	next := m.NextByte()
	if (next == '.' || next == ',' || next == '/') && m.End+1 < len(m.Text) && isDigitByte(m.Text[m.End+1]) {
		return false
	}
	return true
}

func acceptAge(th Thresholds) func(Match, string) bool {
	return func(_ Match, value string) bool {
		n := 0
		for i := 0; i < len(value); i++ {
			n = n*10 + int(value[i]-'0')
		}
		return n > 0 && n <= th.AgeMax
	}
}

func acceptAmount(th Thresholds) func(Match, string) bool {
	return func(m Match, value string) bool {
		f, ok := parseNumber(value)
		if !ok || f <= th.AmountMin {
			return false
		}
		// Digits glued to letters or separators belong to IDs, dates and times.
		currency := len(m.Groups) > 1 && m.Groups[1] != ""
		if isWordByte(m.NextByte()) || (!currency && isWordByte(m.PrevByte())) {
			return false
		}
		if !currency {
			switch m.PrevByte() {
			case '-', '/', ':', '.', '+':
				return false
			}
		}
		switch m.NextByte() {
		case '-', '/', ':':
			return false
		}

		if currency || strings.Contains(m.Value, ",") || strings.Contains(value, ".") {
			return true
		}
		if th.isPhoneShaped(value) || th.isPincodeShaped(value) {
			return false
		}
		// Long bare digit strings are identifiers (account, aadhaar), not money.
		return len(value) < th.PhoneDigits
	}
}

func acceptNumericDate(_ Match, value string) bool {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) != 3 {
		return false
	}
	d, m := atoiSmall(parts[0]), atoiSmall(parts[1])
	// Accept both dd/mm and mm/dd.
	if d < 1 || m < 1 || d > 31 || m > 31 {
		return false
	}
	return d <= 12 || m <= 12
}

func acceptURL(m Match, value string) bool {
	// Domains inside an email are not URLs.
	return m.PrevByte() != '@' && len(value) > len("www.")
}

func isCurrencyPrefix(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasSuffix(s, "₹") || strings.HasSuffix(s, "$") ||
		strings.HasSuffix(s, "rs") || strings.HasSuffix(s, "rs.") || strings.HasSuffix(s, "inr")
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func isWordByte(b byte) bool {
	return isDigitByte(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func atoiSmall(s string) int {
	if len(s) > 4 || !isDigits(s) {
		return -1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
