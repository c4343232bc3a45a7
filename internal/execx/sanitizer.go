package execx

import "strings"

// Shell metacharacters stripped from arguments. The executor never invokes a
// shell, so these would be inert anyway; stripping them is a second layer.
const dangerousChars = ";|&$`()<>{}"

// SanitizeArg transforms one untrusted argument into a shell-safe token.
//
// Any path component (separator or ".." traversal marker) collapses the
// argument to its basename. Dangerous characters and control characters are
// stripped from whatever remains. An argument with neither passes through
// unchanged, including non-ASCII text: Unicode look-alikes of metacharacters
// carry no meaning without a shell.
func SanitizeArg(arg string) string {
	if arg == "" {
		return arg
	}
	if hasPathComponent(arg) {
		arg = basename(arg)
	}
	if hasDangerousChar(arg) {
		arg = stripDangerous(arg)
	}
	return arg
}

func hasPathComponent(s string) bool {
	return strings.ContainsAny(s, `/\`) || strings.Contains(s, "..")
}

// basename returns the segment after the last path separator, accepting both
// separator styles so Windows-style absolute paths are reduced too.
func basename(s string) string {
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		return s[i+1:]
	}
	return s
}

func hasDangerousChar(s string) bool {
	for _, r := range s {
		if isDangerous(r) {
			return true
		}
	}
	return false
}

func isDangerous(r rune) bool {
	return r < 0x20 || r == 0x7f || strings.ContainsRune(dangerousChars, r)
}

func stripDangerous(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isDangerous(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
