package nixconfig

import (
	"strings"
)

// Rewrite implements spec.md §4.5.3's execute-time rewrite: it walks the
// blocks of a config parsed with the installer's own header already
// dropped, preserving every block the merge did not touch verbatim, then
// appends the generated-by header and any merged entries that had no
// existing block to attach to.
func Rewrite(existing *Config, merged []Merged, header string) []byte {
	remaining := make(map[string][]string, len(merged))
	order := make([]string, 0, len(merged))
	for _, m := range merged {
		remaining[m.Key] = m.Tokens
		order = append(order, m.Key)
	}

	var out strings.Builder

	for _, b := range existing.Blocks {
		if b.Key == "" {
			// Trailing comment-only block: preserved verbatim.
			for _, c := range b.Comments {
				out.WriteString(c)
				out.WriteString("\n")
			}
			continue
		}

		if tokens, ok := remaining[b.Key]; ok {
			for _, c := range b.Comments {
				out.WriteString(c)
				out.WriteString("\n")
			}
			writeSetting(&out, b.Key, tokens, b.Inline)
			delete(remaining, b.Key)
			continue
		}

		for _, c := range b.Comments {
			out.WriteString(c)
			out.WriteString("\n")
		}
		writeSetting(&out, b.Key, b.Tokens, b.Inline)
	}

	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")

	for _, key := range order {
		tokens, ok := remaining[key]
		if !ok {
			continue // consumed by an existing block above
		}
		writeSetting(&out, key, tokens, "")
	}

	return []byte(out.String())
}

func writeSetting(out *strings.Builder, key string, tokens []string, inline string) {
	out.WriteString(key)
	out.WriteString(" = ")
	out.WriteString(strings.Join(tokens, " "))
	if inline != "" {
		out.WriteString(" ")
		out.WriteString(inline)
	}
	out.WriteString("\n")
}
