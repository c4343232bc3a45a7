package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogUndefinedControlSequence(t *testing.T) {
	lines := []string{
		"! Undefined control sequence.",
		`l.5 \frakc`,
		"           {1}{2}",
	}
	parsed := ParseLog(lines)
	require.Len(t, parsed.Errors, 1)
	assert.Equal(t, 5, parsed.Errors[0].Line)
	assert.Contains(t, parsed.Errors[0].Message, "Unknown LaTeX command")
}

func TestParseLogMissingDollar(t *testing.T) {
	lines := []string{
		"! Missing $ inserted.",
		"<inserted text>",
		"                $",
		"l.3 x^2",
	}
	parsed := ParseLog(lines)
	require.Len(t, parsed.Errors, 1)
	assert.Contains(t, parsed.Errors[0].Message, "Math mode error")
}

func TestParseLogRunawayArgument(t *testing.T) {
	lines := []string{
		"Runaway argument?",
		"! Runaway argument.",
		"l.7 \\frac{1",
	}
	parsed := ParseLog(lines)
	require.NotEmpty(t, parsed.Errors)
	assert.Contains(t, parsed.Errors[0].Message, "Missing closing brace")
}

func TestParseLogEmergencyStop(t *testing.T) {
	parsed := ParseLog([]string{"! Emergency stop."})
	require.Len(t, parsed.Errors, 1)
	assert.Contains(t, parsed.Errors[0].Message, "Fatal error")
}

func TestParseLogOverfullHboxIsWarning(t *testing.T) {
	parsed := ParseLog([]string{`Overfull \hbox (12.3pt too wide) in paragraph`})
	assert.Empty(t, parsed.Errors)
	require.Len(t, parsed.Warnings, 1)
	assert.Equal(t, `Overfull \hbox`, parsed.Warnings[0].Text)
}

func TestParseLogCleanOutput(t *testing.T) {
	parsed := ParseLog([]string{
		"This is pdfTeX, Version 3.14159265",
		"Output written on equation.pdf (1 page, 12345 bytes).",
	})
	assert.Empty(t, parsed.Errors)
	assert.Empty(t, parsed.Warnings)
}
