package commands

import "strings"

// matchCommand reports whether text invokes /name (optionally addressed as
// /name@bot) and returns the remainder.
func matchCommand(text, name, botUsername string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	cmd, addressee, addressed := strings.Cut(head, "@")
	if !strings.EqualFold(cmd, name) {
		return "", false
	}
	if addressed && botUsername != "" && !strings.EqualFold(addressee, botUsername) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// tokenize splits command text into tokens, honouring quotes and backslash
// escapes:
//
//	create 20.09.2025-10:00 12h "raid night" --thread=5
func tokenize(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		quote rune
		esc   bool
		empty bool // a quoted "" yields an empty token
	)
	flush := func() {
		if buf.Len() > 0 || empty {
			out = append(out, buf.String())
			buf.Reset()
			empty = false
		}
	}
	for _, ch := range s {
		switch {
		case esc:
			buf.WriteRune(ch)
			esc = false
		case ch == '\\':
			esc = true
		case inQ:
			if ch == quote {
				inQ = false
				continue
			}
			buf.WriteRune(ch)
		case ch == '"' || ch == '\'' || ch == '“' || ch == '”':
			inQ = true
			empty = true
			quote = ch
			if ch == '“' {
				quote = '”'
			}
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
	return out
}

// parseFlags splits tokens into positionals and --key=value / --key value flags.
// Everything after a bare "--" is positional.
func parseFlags(args []string) (pos []string, flags map[string]string) {
	flags = map[string]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			pos = append(pos, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "--") || len(a) == 2 {
			pos = append(pos, a)
			continue
		}
		raw := strings.TrimPrefix(a, "--")
		if k, v, ok := strings.Cut(raw, "="); ok {
			flags[strings.ToLower(k)] = v
			continue
		}
		key := strings.ToLower(raw)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[key] = args[i+1]
			i++
			continue
		}
		flags[key] = ""
	}
	return pos, flags
}
