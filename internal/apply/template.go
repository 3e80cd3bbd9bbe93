package apply

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// expandTemplate rewrites a replacement that refers to groups as \1 or
// \g<name> into regexp's $ template syntax. Every other $ stays literal.
// \\, \n and \t are unescaped; other backslashes are kept as written.
func expandTemplate(re *regexp.Regexp, repl string) (string, error) {
	var b strings.Builder
	b.Grow(len(repl))

	for i := 0; i < len(repl); i++ {
		ch := repl[i]
		if ch == '$' {
			b.WriteString("$$")
			continue
		}
		if ch != '\\' || i+1 == len(repl) {
			b.WriteByte(ch)
			continue
		}

		next := repl[i+1]
		switch {
		case next >= '1' && next <= '9':
			// At most two digits, so \10 is group 10 and \1 followed by text stays group 1
			j := i + 2
			if j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			ref := repl[i+1 : j]
			if err := checkGroup(re, ref); err != nil {
				return "", err
			}
			b.WriteString("${" + ref + "}")
			i = j - 1
		case next == 'g' && i+2 < len(repl) && repl[i+2] == '<':
			end := strings.IndexByte(repl[i+3:], '>')
			if end <= 0 {
				return "", fmt.Errorf("unterminated group reference at offset %d", i)
			}
			ref := repl[i+3 : i+3+end]
			if err := checkGroup(re, ref); err != nil {
				return "", err
			}
			b.WriteString("${" + ref + "}")
			i += 3 + end
		case next == '\\':
			b.WriteByte('\\')
			i++
		case next == 'n':
			b.WriteByte('\n')
			i++
		case next == 't':
			b.WriteByte('\t')
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}

func checkGroup(re *regexp.Regexp, ref string) error {
	if n, err := strconv.Atoi(ref); err == nil {
		if n > re.NumSubexp() {
			return fmt.Errorf("invalid group reference %d: pattern has %d group(s)", n, re.NumSubexp())
		}
		return nil
	}
	if re.SubexpIndex(ref) < 0 {
		return fmt.Errorf("unknown group name %q", ref)
	}
	return nil
}
