package textutil

import "strings"

// unsafeRunes maps characters that break paths on common filesystems to a
// replacement. An empty replacement drops the character.
var unsafeRunes = map[rune]string{
	'/':  "-",
	'\\': "-",
	':':  "-",
	'*':  "-",
	'?':  "",
	'"':  "",
	'<':  "",
	'>':  "",
	'|':  "",
}

// SanitizeFileName makes a show or episode name safe to embed in a base
// name. Separators become dashes, quoting and wildcard characters are
// dropped, and surrounding whitespace is trimmed.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		if repl, ok := unsafeRunes[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ClipToken turns free text into an ASCII token of at most limit bytes for
// use in clip file names. Anything outside [A-Za-z0-9] becomes an underscore.
func ClipToken(value string, limit int) string {
	var b strings.Builder
	for _, r := range value {
		if limit > 0 && b.Len() >= limit {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
