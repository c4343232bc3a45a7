package execx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain filename unchanged", "test.tex", "test.tex"},
		{"empty string unchanged", "", ""},
		{"flag unchanged", "-halt-on-error", "-halt-on-error"},
		{"relative path to basename", "../../etc/passwd", "passwd"},
		{"absolute path to basename", "/etc/passwd", "passwd"},
		{"windows path to basename", `C:\Windows\system32`, "system32"},
		{"traversal without separator treated as path", "a..b", "a..b"},
		{"dangerous chars stripped", "file;rm -rf", "filerm -rf"},
		{"pipe stripped", "a|b", "ab"},
		{"backtick stripped", "a`whoami`b", "awhoamib"},
		{"variable expansion stripped", "${HOME}", "HOME"},
		{"newline and null stripped", "a\nb\x00c", "abc"},
		{"redirects stripped", "a<b>c", "abc"},
		{"path and dangerous chars", "../../etc/passwd;whoami", "passwdwhoami"},
		{"only dangerous chars becomes empty", ";|&$`", ""},
		{"unicode homoglyphs pass through", "раѕѕwd\uff1b", "раѕѕwd\uff1b"},
		{"unicode kept when stripping ascii metachars", "ünï;code", "ünïcode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeArg(tt.in))
		})
	}
}

func TestSanitizeArgIdempotent(t *testing.T) {
	inputs := []string{"test.tex", "equation.png", "-no-shell-escape", "4000x4000"}
	for _, in := range inputs {
		once := SanitizeArg(in)
		assert.Equal(t, once, SanitizeArg(once))
	}
}

func TestSanitizeArgStripsAllMetacharacters(t *testing.T) {
	out := SanitizeArg("x;y|z&a$b`c(d)e<f>g\nh\ri\x00j")
	assert.NotContains(t, out, ";")
	assert.NotContains(t, out, "|")
	assert.NotContains(t, out, "&")
	assert.NotContains(t, out, "$")
	assert.NotContains(t, out, "`")
	assert.NotContains(t, out, "(")
	assert.NotContains(t, out, ")")
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.NotContains(t, out, "\n")
	assert.NotContains(t, out, "\r")
	assert.NotContains(t, out, "\x00")
	assert.Equal(t, "xyzabcdefghij", out)
}

func TestSanitizeArgLongArgumentPreserved(t *testing.T) {
	long := strings.Repeat("a", 10000)
	assert.Equal(t, long, SanitizeArg(long))
}
