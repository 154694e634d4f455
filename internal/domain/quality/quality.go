package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinCharCount    = 20
	MinWordCount    = 5
	OptimalMinWords = 20
	OptimalMaxWords = 2000
	LongLineLimit   = 500

	repeatedCharRun = 5
	minVowelRatio   = 0.1
)

type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

type Code string

const (
	CodeEmpty              Code = "EMPTY"
	CodeTooShort           Code = "TOO_SHORT"
	CodeFewWords           Code = "FEW_WORDS"
	CodeGibberish          Code = "GIBBERISH"
	CodeNoClearInstruction Code = "NO_CLEAR_INSTRUCTION"
	CodeUnbalancedBrackets Code = "UNBALANCED_BRACKETS"
	CodeLongLines          Code = "LONG_LINES"
)

// Position is a rune offset range into the trimmed input.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Issue struct {
	Severity Severity  `json:"severity"`
	Code     Code      `json:"code"`
	Message  string    `json:"message"`
	Position *Position `json:"position,omitempty"`
}

type Stats struct {
	CharacterCount int  `json:"character_count"`
	WordCount      int  `json:"word_count"`
	SentenceCount  int  `json:"sentence_count"`
	VariableCount  int  `json:"variable_count"`
	HasRole        bool `json:"has_role"`
	HasTask        bool `json:"has_task"`
	HasConstraints bool `json:"has_constraints"`
	HasExamples    bool `json:"has_examples"`
}

type Result struct {
	Valid  bool    `json:"valid"`
	Score  float64 `json:"score"`
	Issues []Issue `json:"issues"`
	Stats  Stats   `json:"stats"`
}

func (r Result) HasCode(c Code) bool {
	for _, i := range r.Issues {
		if i.Code == c {
			return true
		}
	}
	return false
}

// Errors returns the messages of every error-severity issue.
func (r Result) Errors() []string {
	var out []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i.Message)
		}
	}
	return out
}

// ValidationError aggregates the error-severity issues of a failed check.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.Message)
	}
	return "prompt validation failed: " + strings.Join(msgs, "; ")
}

var (
	roleRe        = regexp.MustCompile(`(?i)\b(act as|you are|imagine you|pretend to be)\b|\b(role|persona):`)
	taskRe        = regexp.MustCompile(`(?i)\b(your task|you (will|should|must)|please|help me|i need|i want you to)\b`)
	constraintsRe = regexp.MustCompile(`(?i)\b(never|always|must not|do not|don't|cannot|can't|should not|shouldn't|only|avoid|rules?|constraints?|requirements?|guidelines?)\b`)
	examplesRe    = regexp.MustCompile("(?i)\\b(for example|for instance|such as|e\\.g\\.|examples?:|input:|output:)|```")

	dollarVarRe   = regexp.MustCompile(`\$\{[^}]+\}`)
	mustacheVarRe = regexp.MustCompile(`\{\{[^}]+\}\}`)
	wikiVarRe     = regexp.MustCompile(`\[\[[^\]]+\]\]`)
	capsVarRe     = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*\]`)

	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

	keyboardWalks = []string{"qwerty", "asdfgh", "zxcvbn", "qwertz", "azerty"}

	bracketPairs = [][2]rune{{'{', '}'}, {'[', ']'}, {'(', ')'}}
)

// Check scores text. It never fails; Valid is false iff an error-severity
// issue was found.
func Check(text string) Result {
	trimmed := strings.TrimSpace(text)
	stats := computeStats(trimmed)

	if stats.CharacterCount == 0 {
		return Result{
			Valid:  false,
			Score:  0,
			Issues: []Issue{{Severity: SeverityError, Code: CodeEmpty, Message: "Prompt is empty"}},
			Stats:  stats,
		}
	}

	issues := []Issue{}
	if stats.CharacterCount < MinCharCount {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeTooShort,
			Message:  fmt.Sprintf("Prompt is too short (%d characters, minimum %d)", stats.CharacterCount, MinCharCount),
		})
	}
	if stats.WordCount > 0 && stats.WordCount < MinWordCount {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeFewWords,
			Message:  fmt.Sprintf("Prompt has only %d words (recommended at least %d)", stats.WordCount, MinWordCount),
		})
	}
	if issue, ok := gibberish(trimmed); ok {
		issues = append(issues, issue)
	}
	if !stats.HasRole && !stats.HasTask {
		issues = append(issues, Issue{
			Severity: SeveritySuggestion,
			Code:     CodeNoClearInstruction,
			Message:  "Prompt has no clear role or task; consider stating who the model is or what it should do",
		})
	}
	for _, pair := range bracketPairs {
		open, closed := strings.Count(trimmed, string(pair[0])), strings.Count(trimmed, string(pair[1]))
		if open != closed {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeUnbalancedBrackets,
				Message:  fmt.Sprintf("Unbalanced brackets: %d '%c' vs %d '%c'", open, pair[0], closed, pair[1]),
			})
		}
	}
	if pos, ok := longLine(trimmed); ok {
		issues = append(issues, Issue{
			Severity: SeveritySuggestion,
			Code:     CodeLongLines,
			Message:  fmt.Sprintf("Some lines exceed %d characters; consider breaking them up", LongLineLimit),
			Position: pos,
		})
	}

	return Result{
		Valid:  !hasErrors(issues),
		Score:  score(issues, stats),
		Issues: issues,
		Stats:  stats,
	}
}

// Validate returns a *ValidationError when Check finds any error.
func Validate(text string) error {
	r := Check(text)
	if r.Valid {
		return nil
	}
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return &ValidationError{Issues: errs}
}

func IsValid(text string) bool {
	return Check(text).Valid
}

// Suggestions returns the warning and suggestion messages from Check plus
// advice that depends only on the stats.
func Suggestions(text string) []string {
	r := Check(text)
	out := []string{}
	for _, i := range r.Issues {
		if i.Severity != SeverityError {
			out = append(out, i.Message)
		}
	}

	s := r.Stats
	if !s.HasRole {
		out = append(out, `Define a role for the model, e.g. "You are an expert ..."`)
	}
	if !s.HasConstraints && s.WordCount > 50 {
		out = append(out, "Add constraints or rules to narrow the expected output")
	}
	if !s.HasExamples && s.WordCount > 100 {
		out = append(out, "Add an example of the desired input and output")
	}
	if s.VariableCount == 0 && s.WordCount > 30 {
		out = append(out, "Use variables such as {{name}} to make the prompt reusable")
	}
	return out
}

func computeStats(trimmed string) Stats {
	s := Stats{
		CharacterCount: utf8.RuneCountInString(trimmed),
		WordCount:      len(strings.Fields(trimmed)),
	}
	if s.CharacterCount == 0 {
		return s
	}
	for _, part := range sentenceSplitRe.Split(trimmed, -1) {
		if strings.TrimSpace(part) != "" {
			s.SentenceCount++
		}
	}
	s.VariableCount = countVariables(trimmed)
	s.HasRole = roleRe.MatchString(trimmed)
	s.HasTask = taskRe.MatchString(trimmed)
	s.HasConstraints = constraintsRe.MatchString(trimmed)
	s.HasExamples = examplesRe.MatchString(trimmed)
	return s
}

// countVariables counts ${x}, {{x}}, [[x]] and [UPPER_CASE] placeholders.
// [[x]] spans are removed before the upper-case scan so they count once.
func countVariables(s string) int {
	n := len(dollarVarRe.FindAllStringIndex(s, -1))
	n += len(mustacheVarRe.FindAllStringIndex(s, -1))
	n += len(wikiVarRe.FindAllStringIndex(s, -1))
	n += len(capsVarRe.FindAllStringIndex(wikiVarRe.ReplaceAllString(s, " "), -1))
	return n
}

func gibberish(s string) (Issue, bool) {
	issue := Issue{Severity: SeverityError, Code: CodeGibberish}

	if start, end, ok := repeatedRun(s); ok {
		issue.Message = "Prompt contains a character repeated many times in a row"
		issue.Position = &Position{Start: start, End: end}
		return issue, true
	}

	lower := strings.ToLower(s)
	for _, walk := range keyboardWalks {
		if strings.Contains(lower, walk) {
			issue.Message = fmt.Sprintf("Prompt contains keyboard pattern %q", walk)
			return issue, true
		}
	}

	var vowels, consonants int
	for _, r := range lower {
		if r < 'a' || r > 'z' {
			continue
		}
		if strings.ContainsRune("aeiou", r) {
			vowels++
		} else {
			consonants++
		}
	}
	if consonants > 0 && float64(vowels)/float64(consonants) < minVowelRatio {
		issue.Message = "Prompt has too few vowels to be natural language"
		return issue, true
	}
	return Issue{}, false
}

// repeatedRun finds the first run of one rune at least repeatedCharRun
// long and returns its rune offsets. Whitespace runs count.
func repeatedRun(s string) (int, int, bool) {
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= repeatedCharRun {
			return i, j, true
		}
		i = j
	}
	return 0, 0, false
}

func longLine(s string) (*Position, bool) {
	offset := 0
	for _, line := range strings.Split(s, "\n") {
		n := utf8.RuneCountInString(line)
		if n > LongLineLimit {
			return &Position{Start: offset, End: offset + n}, true
		}
		offset += n + 1
	}
	return nil, false
}

func hasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func score(issues []Issue, s Stats) float64 {
	v := 1.0
	for _, i := range issues {
		switch i.Severity {
		case SeverityError:
			v -= 0.2
		case SeverityWarning:
			v -= 0.05
		}
	}
	if s.HasRole {
		v += 0.05
	}
	if s.HasTask {
		v += 0.05
	}
	if s.HasExamples {
		v += 0.05
	}
	if s.HasConstraints {
		v += 0.03
	}
	if s.WordCount < OptimalMinWords {
		v -= 0.1 * (1 - float64(s.WordCount)/OptimalMinWords)
	}
	if s.WordCount > OptimalMaxWords {
		v -= 0.05
	}
	if s.VariableCount > 0 {
		v += 0.05
	}
	return min(max(v, 0), 1)
}
