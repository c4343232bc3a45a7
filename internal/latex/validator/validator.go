// Package validator rejects dangerous LaTeX source before anything touches
// the filesystem or a process. It is a pure function over the input string
// and runs strictly before the execution layer.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// MaxSourceLength bounds the whole equation.
	MaxSourceLength = 2000
	// MaxLineLength bounds any single line.
	MaxLineLength = 200
	// MaxBraceDepth bounds group nesting.
	MaxBraceDepth = 10

	// Repetition bound: a unit of repeatUnitMin+ bytes occurring
	// maxRepeats+1 times consecutively is treated as an algorithmic-DoS
	// attempt against the typesetter.
	repeatUnitMin = 3
	maxRepeats    = 10
)

// Result reports every failed check, not just the first.
type Result struct {
	Valid  bool
	Errors []string
}

// Blocked control sequences, matched case-insensitively anywhere in the text.
var blockedCommands = []struct {
	re   *regexp.Regexp
	name string
}{
	// File read/write
	{regexp.MustCompile(`(?i)\\input\b`), `\input`},
	{regexp.MustCompile(`(?i)\\include\b`), `\include`},
	{regexp.MustCompile(`(?i)\\InputIfFileExists`), `\InputIfFileExists`},
	{regexp.MustCompile(`(?i)\\openin`), `\openin`},
	{regexp.MustCompile(`(?i)\\read\b`), `\read`},
	{regexp.MustCompile(`(?i)\\openout`), `\openout`},
	{regexp.MustCompile(`(?i)\\closeout`), `\closeout`},
	// Shell execution. The whitespace-tolerant \immediate form is a known
	// partial match; the engine runs with -no-shell-escape regardless.
	{regexp.MustCompile(`(?i)\\write18`), `\write18`},
	{regexp.MustCompile(`(?i)\\immediate\s*\\write\s*18`), `\immediate\write18`},
	{regexp.MustCompile(`(?i)\\system\b`), `\system`},
	{regexp.MustCompile(`(?i)\\ShellEscape`), `\ShellEscape`},
	// Macro definition and expansion
	{regexp.MustCompile(`(?i)\\def\b`), `\def`},
	{regexp.MustCompile(`(?i)\\gdef\b`), `\gdef`},
	{regexp.MustCompile(`(?i)\\edef\b`), `\edef`},
	{regexp.MustCompile(`(?i)\\xdef\b`), `\xdef`},
	{regexp.MustCompile(`(?i)\\let\b`), `\let`},
	{regexp.MustCompile(`(?i)\\futurelet`), `\futurelet`},
	{regexp.MustCompile(`(?i)\\expandafter`), `\expandafter`},
	{regexp.MustCompile(`(?i)\\csname`), `\csname`},
	{regexp.MustCompile(`(?i)\\endcsname`), `\endcsname`},
	// Token introspection
	{regexp.MustCompile(`(?i)\\string\b`), `\string`},
	{regexp.MustCompile(`(?i)\\meaning`), `\meaning`},
	{regexp.MustCompile(`(?i)\\jobname`), `\jobname`},
	{regexp.MustCompile(`(?i)\\detokenize`), `\detokenize`},
	{regexp.MustCompile(`(?i)\\scantokens`), `\scantokens`},
}

// Packages an equation may pull in.
var allowedPackages = map[string]struct{}{
	"amsmath":   {},
	"amssymb":   {},
	"amsfonts":  {},
	"mathtools": {},
	"physics":   {},
	"siunitx":   {},
	"cancel":    {},
	"bm":        {},
	"esint":     {},
	"gensymb":   {},
	"mhchem":    {},
	"upgreek":   {},
	"xcolor":    {},
	"color":     {},
	"array":     {},
}

var (
	reUsePackage = regexp.MustCompile(`(?i)\\usepackage\s*(?:\[[^\]]*\])?\s*\{([^}]*)\}`)
	reFileArg    = regexp.MustCompile(`(?i)\\(?:includegraphics|input|include|usepackage|bibliography|graphicspath|documentclass|InputIfFileExists)\s*(?:\[[^\]]*\])?\s*\{([^}]*)\}`)
)

// TeX caret escapes can smuggle a backslash (^^5c) past the command
// blocklist; bidi overrides and zero-width characters hide what a reviewer
// sees. These are rejected outright; other non-ASCII text is fine.
var obfuscationRunes = []rune{
	'\u202a', '\u202b', '\u202c', '\u202d', '\u202e', // bidi embedding/override
	'\u2066', '\u2067', '\u2068', '\u2069', // bidi isolates
	'\u200b', '\u200c', '\u200d', '\ufeff', // zero-width
}

// Check runs every safety check over the source and collects all failures.
func Check(source string) Result {
	var errs []string

	if len(source) > MaxSourceLength {
		errs = append(errs, fmt.Sprintf("Equation too long (max %d characters)", MaxSourceLength))
	}

	for _, line := range strings.Split(source, "\n") {
		if len(line) > MaxLineLength {
			errs = append(errs, fmt.Sprintf("Line too long (max %d characters per line)", MaxLineLength))
			break
		}
	}

	// The repetition scan is quadratic, so it only runs on input already
	// within the length bound; oversized input is rejected above anyway.
	if len(source) <= MaxSourceLength && hasExcessiveRepetition(source) {
		errs = append(errs, "Excessive repetition detected")
	}

	errs = append(errs, checkBraces(source)...)

	for _, blocked := range blockedCommands {
		if blocked.re.MatchString(source) {
			errs = append(errs, "Dangerous command detected: "+blocked.name)
		}
	}

	if strings.Contains(strings.ToLower(source), `\catcode`) {
		errs = append(errs, "Category code manipulation is not allowed")
	}

	if unauthorized := unauthorizedPackages(source); len(unauthorized) > 0 {
		errs = append(errs, "References unauthorized packages: "+strings.Join(unauthorized, ", "))
	}

	if hasUnsafePath(source) {
		errs = append(errs, "Unsafe path in file reference")
	}

	if hasObfuscation(source) {
		errs = append(errs, "Obfuscated input detected")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// hasExcessiveRepetition reports a unit of >= repeatUnitMin bytes repeated
// more than maxRepeats times back to back. Runs of a single character are
// exempt; those are bounded by the line and length limits instead.
func hasExcessiveRepetition(s string) bool {
	n := len(s)
	for unit := repeatUnitMin; unit*(maxRepeats+1) <= n; unit++ {
		// A run of this unit needs total bytes to even be possible.
		total := unit * (maxRepeats + 1)
		for start := 0; start+total <= n; start++ {
			pattern := s[start : start+unit]
			if singleCharRun(pattern) {
				continue
			}
			count := 1
			for next := start + unit; next+unit <= n && s[next:next+unit] == pattern; next += unit {
				count++
				if count > maxRepeats {
					return true
				}
			}
		}
	}
	return false
}

func singleCharRun(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// checkBraces walks groups, skipping literal \{ and \}.
func checkBraces(s string) []string {
	depth := 0
	escaped := false
	for _, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '{':
			depth++
			if depth > MaxBraceDepth {
				return []string{fmt.Sprintf("Invalid structure: excessive nesting (max depth %d)", MaxBraceDepth)}
			}
		case '}':
			depth--
			if depth < 0 {
				return []string{"Invalid structure: unbalanced braces"}
			}
		}
	}
	if depth != 0 {
		return []string{"Invalid structure: unbalanced braces"}
	}
	return nil
}

func unauthorizedPackages(s string) []string {
	seen := map[string]struct{}{}
	for _, m := range reUsePackage.FindAllStringSubmatch(s, -1) {
		for _, name := range strings.Split(m[1], ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, ok := allowedPackages[name]; !ok {
				seen[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func hasUnsafePath(s string) bool {
	for _, m := range reFileArg.FindAllStringSubmatch(s, -1) {
		arg := m[1]
		if strings.Contains(arg, "..") || strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, `\\`) {
			return true
		}
	}
	return false
}

func hasObfuscation(s string) bool {
	if strings.Contains(s, "^^") {
		return true
	}
	for _, r := range obfuscationRunes {
		if strings.ContainsRune(s, r) {
			return true
		}
	}
	return false
}
