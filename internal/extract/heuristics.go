package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// capWordRE matches one title-case word, optionally with an apostrophe or
// hyphen part ("O'Neil", "Jean-Luc") and a trailing period ("Mr.").
var capWordRE = regexp.MustCompile(`[A-Z][a-z]+(?:['’\-][A-Za-z]+)?\.?`)

// nameCueRE matches phrases that introduce a name, anchored to the end of the
// text preceding a candidate.
var nameCueRE = regexp.MustCompile(`(?i)(?:\bname\s*(?:is|:|-|=)?|\bi\s+am|\bi'm|\bthis\s+is|\bcalled)[\s*]*$`)

type capWord struct {
	text       string
	start, end int
	dotted     bool
}

// extractNames finds person names: runs of one to MaxNameWords capitalized
// words, with stopwords and known vocabulary trimmed from both ends.
func (e *Engine) extractNames(rule Rule, text string) []string {
	var names []string
	for _, run := range capitalizedRuns(text) {
		// "Blood Group: O+" is a label, not a person.
		if strings.HasPrefix(strings.TrimLeft(text[run[len(run)-1].end:], " \t*"), ":") {
			continue
		}
		cue := false
		for len(run) > 0 && e.isNameExcluded(run[0].text) {
			if honorifics[strings.ToLower(run[0].text)] {
				cue = true
			}
			run = run[1:]
		}
		for len(run) > 0 && e.isNameExcluded(run[len(run)-1].text) {
			run = run[:len(run)-1]
		}
		if len(run) == 0 || len(run) > e.th.MaxNameWords {
			continue
		}
		if !e.acceptNameRun(run) {
			continue
		}
		if len(run) < e.th.MinNameWords && !cue && !nameCueRE.MatchString(text[:run[0].start]) {
			continue
		}

		parts := make([]string, len(run))
		for i, w := range run {
			parts[i] = w.text
		}
		names = append(names, normalize(rule.Post, strings.Join(parts, " ")))
	}
	return names
}

func (e *Engine) acceptNameRun(run []capWord) bool {
	for _, w := range run {
		if e.isNameExcluded(w.text) {
			return false
		}
	}
	return true
}

func (e *Engine) isNameExcluded(word string) bool {
	key := strings.ToLower(word)
	return nameStopwords[key] || e.vocabWords[key]
}

// capitalizedRuns groups capitalized words separated only by spaces or tabs.
// A period ends a run unless it follows an honorific.
func capitalizedRuns(text string) [][]capWord {
	var runs [][]capWord
	var cur []capWord
	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}

	for _, loc := range capWordRE.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isLetterOrDigitBefore(text, start) {
			continue
		}
		if end < len(text) && isLetterOrDigitAt(text, end) {
			continue
		}
		w := capWord{text: text[start:end], start: start, end: end}
		if strings.HasSuffix(w.text, ".") {
			w.text = strings.TrimSuffix(w.text, ".")
			w.dotted = true
		}

		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			gap := text[prev.end:start]
			brokenByDot := prev.dotted && !honorifics[strings.ToLower(prev.text)]
			if gap == "" || strings.Trim(gap, " \t") != "" || brokenByDot {
				flush()
			}
		}
		cur = append(cur, w)
	}
	flush()
	return runs
}

func isLetterOrDigitBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isLetterOrDigitAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

const (
	maxLabelRunes = 40
	maxLabelWords = 5
)

// extractKeyValues turns "Label: value" lines into fields named after the
// label. Labels that alias a field owned by a dedicated rule only contribute
// when that rule finds nothing in the value.
func (e *Engine) extractKeyValues(rule Rule, text string) fields.Result {
	out := fields.NewResult()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := labelColon(line)
		if idx <= 0 {
			continue
		}
		label := cleanLabel(line[:idx])
		value := normalize(rule.Post, cleanValue(line[idx+1:]))
		if value == "" || !isPlausibleLabel(label) {
			continue
		}

		name, err := e.labelField(label)
		if err != nil {
			continue
		}
		if owners := e.owners[name]; len(owners) > 0 {
			if e.ownersMatch(owners, value) {
				continue
			}
		}
		out.Add(name, value)
	}
	return out
}

// labelColon returns the index of the first colon that is not part of "://".
func labelColon(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if strings.HasPrefix(line[i:], "://") {
			return -1
		}
		return i
	}
	return -1
}

func cleanLabel(label string) string {
	label = strings.TrimLeft(label, "-*•·> \t")
	label = strings.ReplaceAll(label, "**", "")
	label = strings.ReplaceAll(label, "__", "")
	label = strings.Trim(label, "*_ \t")
	return label
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimLeft(v, "*_ \t")
	v = strings.TrimRight(v, "*_ \t")
	return v
}

func isPlausibleLabel(label string) bool {
	if label == "" || utf8.RuneCountInString(label) > maxLabelRunes {
		return false
	}
	if len(strings.Fields(label)) > maxLabelWords {
		return false
	}
	if strings.ContainsAny(label, "@/\\") {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(label)
	if unicode.IsDigit(last) {
		return false
	}
	for _, r := range label {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func (e *Engine) labelField(label string) (fields.Name, error) {
	if alias, ok := fieldAliases[vocabKey(label)]; ok {
		return fields.ParseName(alias)
	}
	return fields.ParseName(label)
}

// ownersMatch reports whether any dedicated rule for a field finds a value in s.
func (e *Engine) ownersMatch(owners []Rule, s string) bool {
	for _, r := range owners {
		if len(e.scan(r, s)) > 0 {
			return true
		}
	}
	return false
}

// normalize applies a post-processing policy to a raw value.
func normalize(p Post, s string) string {
	switch p {
	case PostLower:
		return strings.ToLower(strings.TrimSpace(s))
	case PostDigits:
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			if isDigitByte(s[i]) {
				b.WriteByte(s[i])
			}
		}
		return b.String()
	case PostTitle:
		words := strings.Fields(s)
		for i, w := range words {
			words[i] = titleCase(w)
		}
		return strings.Join(words, " ")
	case PostCompactSpace:
		return strings.Join(strings.Fields(s), " ")
	case PostNumber:
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
			s = s[:i]
		}
		return s
	default:
		return strings.TrimSpace(s)
	}
}

func titleCase(w string) string {
	lower := strings.ToLower(w)
	r, size := utf8.DecodeRuneInString(lower)
	if r == utf8.RuneError {
		return lower
	}
	return string(unicode.ToUpper(r)) + lower[size:]
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
