package nixconfig

import (
	"fmt"
	"strings"
)

// IncludeResolver reads the contents of a file referenced by !include,
// relative to whatever the caller considers "the including file's
// directory". Real usage resolves against os.ReadFile; tests can stub it.
type IncludeResolver func(path string) ([]byte, error)

// Parse groups data into associated blocks (spec.md §4.5.3): a run of
// comment lines followed by exactly one non-comment line forms a block;
// blank lines terminate a pending comment run without attaching it to
// anything. Any line exactly equal to dropHeader is discarded as it is
// parsed — it is the installer's own previously-written header, not user
// content (pass "" to keep every line).
func Parse(data []byte, resolve IncludeResolver, dropHeader string) (*Config, error) {
	lines := strings.Split(string(data), "\n")
	// Split on "\n" always yields one trailing empty element for a
	// trailing newline; drop it so it isn't mistaken for a blank line that
	// resets a pending comment run.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	cfg := &Config{}
	var pending []string

	for _, raw := range lines {
		line := raw
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			pending = nil

		case strings.HasPrefix(trimmed, "#"):
			if dropHeader != "" && line == dropHeader {
				continue
			}
			pending = append(pending, line)

		case strings.HasPrefix(trimmed, "!include "):
			pending = nil
			path := strings.TrimSpace(strings.TrimPrefix(trimmed, "!include "))
			if resolve == nil {
				return nil, fmt.Errorf("nixconfig: !include %q but no resolver configured", path)
			}
			included, err := resolve(path)
			if err != nil {
				return nil, fmt.Errorf("nixconfig: resolving !include %q: %w", path, err)
			}
			sub, err := Parse(included, resolve, dropHeader)
			if err != nil {
				return nil, fmt.Errorf("nixconfig: parsing included file %q: %w", path, err)
			}
			cfg.Blocks = append(cfg.Blocks, sub.Blocks...)

		default:
			key, tokens, inline := parseSetting(trimmed)
			cfg.Blocks = append(cfg.Blocks, Block{
				Comments: pending,
				Key:      key,
				Tokens:   tokens,
				Inline:   inline,
			})
			pending = nil
		}
	}

	if len(pending) > 0 {
		cfg.Blocks = append(cfg.Blocks, Block{Comments: pending})
	}

	cfg.reindex()
	return cfg, nil
}

// parseSetting splits "name = value… # inline comment" into its parts.
// Values are split on runs of whitespace (strings.Fields), not on single
// spaces, so consecutive spaces or tabs never produce empty tokens.
func parseSetting(line string) (key string, tokens []string, inline string) {
	body := line
	if idx := strings.Index(line, "#"); idx >= 0 {
		body = line[:idx]
		inline = strings.TrimRight(line[idx:], " ")
	}

	eq := strings.Index(body, "=")
	if eq < 0 {
		return "", nil, inline
	}
	key = strings.TrimSpace(body[:eq])
	value := strings.TrimSpace(body[eq+1:])
	if value != "" {
		// See the same note in merge.go: strings.Fields collapses
		// consecutive spaces where original_source's split(' ') would not.
		tokens = strings.Fields(value)
	}
	return key, tokens, inline
}
