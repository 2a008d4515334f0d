package state

import (
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// MalformedPayloadError indicates a state-update payload that could not be
// decoded even after canonicalization. The event carrying it is dropped,
// never partially merged.
type MalformedPayloadError struct {
	Err error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("state: malformed payload: %v", e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// Canonicalize converts a textual payload that may use Python literal
// conventions (True/False/None, single-quoted strings) into standard JSON.
// Residual looseness (trailing commas, comments) is standardized with hujson.
// Pure function: no state, independently testable from the merge logic.
func Canonicalize(text string) ([]byte, error) {
	rewritten := rewriteForeignLiterals(text)

	std, err := hujson.Standardize([]byte(rewritten))
	if err != nil {
		return nil, &MalformedPayloadError{Err: err}
	}
	return std, nil
}

// rewriteForeignLiterals rewrites Python literal tokens outside string bounds
// and converts single-quoted strings to double-quoted ones.
func rewriteForeignLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '"':
			j := skipDoubleQuoted(s, i)
			b.WriteString(s[i:j])
			i = j

		case '\'':
			b.WriteByte('"')
			i++
			for i < len(s) {
				ch := s[i]
				if ch == '\\' && i+1 < len(s) {
					// \' has no meaning in JSON; unescape it
					if s[i+1] == '\'' {
						b.WriteByte('\'')
					} else {
						b.WriteByte('\\')
						b.WriteByte(s[i+1])
					}
					i += 2
					continue
				}
				if ch == '\'' {
					i++
					break
				}
				if ch == '"' {
					b.WriteString(`\"`)
					i++
					continue
				}
				b.WriteByte(ch)
				i++
			}
			b.WriteByte('"')

		default:
			if replaced, n := matchForeignWord(s, i); n > 0 {
				b.WriteString(replaced)
				i += n
				continue
			}
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

// skipDoubleQuoted returns the index just past the closing quote of the
// double-quoted string starting at i.
func skipDoubleQuoted(s string, i int) int {
	j := i + 1
	for j < len(s) {
		if s[j] == '\\' && j+1 < len(s) {
			j += 2
			continue
		}
		if s[j] == '"' {
			return j + 1
		}
		j++
	}
	return j
}

var foreignWords = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// matchForeignWord checks for a Python literal keyword at position i with
// identifier boundaries on both sides. Returns the replacement and the
// matched length, or ("", 0).
func matchForeignWord(s string, i int) (string, int) {
	if i > 0 && isIdentByte(s[i-1]) {
		return "", 0
	}
	for word, repl := range foreignWords {
		if strings.HasPrefix(s[i:], word) {
			end := i + len(word)
			if end < len(s) && isIdentByte(s[end]) {
				continue
			}
			return repl, len(word)
		}
	}
	return "", 0
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
