package compiler

import (
	"regexp"
	"strconv"
)

// ParsedLog contains extracted errors and warnings from pdflatex output.
type ParsedLog struct {
	Errors   []LogError
	Warnings []LogWarning
	RawLines []string
}

// LogError represents a single error.
type LogError struct {
	Line    int
	Message string
	Raw     string
}

// LogWarning represents a warning (e.g. Overfull \hbox).
type LogWarning struct {
	Line int
	Text string
	Raw  string
}

var (
	reUndefinedSeq  = regexp.MustCompile(`^! Undefined control sequence\.`)
	reMissingDollar = regexp.MustCompile(`^! Missing \$ inserted\.`)
	reExtraBrace    = regexp.MustCompile(`^! (?:Extra \}|Missing \} inserted)`)
	reRunawayArg    = regexp.MustCompile(`^! Runaway argument`)
	reEmergencyStop = regexp.MustCompile(`^! Emergency stop`)
	reOverfullHbox  = regexp.MustCompile(`Overfull \\hbox`)
	reLineNum       = regexp.MustCompile(`l\.(\d+)`)
	reUndefinedCmd  = regexp.MustCompile(`l\.(\d+)\s+([^\s].*)`)
)

// ParseLog processes raw pdflatex log lines and extracts structured
// errors/warnings so the API can show something friendlier than a TeX dump.
func ParseLog(lines []string) *ParsedLog {
	pl := &ParsedLog{RawLines: lines}
	pl.Errors = []LogError{}
	pl.Warnings = []LogWarning{}

	for i, line := range lines {
		switch {
		case reUndefinedSeq.MatchString(line):
			lineNum := extractLineNum(lines, i)
			cmd := extractCmd(lines, i)
			pl.Errors = append(pl.Errors, LogError{
				Line: lineNum, Message: "Unknown LaTeX command: " + cmd + " on line " + strconv.Itoa(lineNum), Raw: line,
			})
		case reMissingDollar.MatchString(line):
			lineNum := extractLineNum(lines, i)
			pl.Errors = append(pl.Errors, LogError{Line: lineNum, Message: "Math mode error near line " + strconv.Itoa(lineNum), Raw: line})
		case reExtraBrace.MatchString(line):
			lineNum := extractLineNum(lines, i)
			pl.Errors = append(pl.Errors, LogError{Line: lineNum, Message: "Mismatched braces near line " + strconv.Itoa(lineNum), Raw: line})
		case reRunawayArg.MatchString(line):
			lineNum := extractLineNum(lines, i)
			pl.Errors = append(pl.Errors, LogError{Line: lineNum, Message: "Missing closing brace near line " + strconv.Itoa(lineNum), Raw: line})
		case reEmergencyStop.MatchString(line):
			lineNum := extractLineNum(lines, i)
			pl.Errors = append(pl.Errors, LogError{Line: lineNum, Message: "Fatal error, check syntax near line " + strconv.Itoa(lineNum), Raw: line})
		case reOverfullHbox.MatchString(line):
			lineNum := extractLineNum(lines, i)
			pl.Warnings = append(pl.Warnings, LogWarning{Line: lineNum, Text: "Overfull \\hbox", Raw: line})
		}
	}
	return pl
}

// The "l.N" marker trails the "!" line in pdflatex logs, so both helpers
// scan a short window forward from the error.
func extractLineNum(lines []string, errIdx int) int {
	for i := errIdx; i < len(lines) && i-errIdx < 5; i++ {
		if m := reLineNum.FindStringSubmatch(lines[i]); len(m) > 1 {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	}
	return 0
}

func extractCmd(lines []string, errIdx int) string {
	for i := errIdx; i < len(lines) && i-errIdx < 5; i++ {
		if m := reUndefinedCmd.FindStringSubmatch(lines[i]); len(m) > 2 {
			return m[2]
		}
	}
	return "?"
}
