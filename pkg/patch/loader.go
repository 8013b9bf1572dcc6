package patch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sources names the four patch table files for one run. Any empty path means
// that table starts empty, which is valid: a grammar with no patches still
// transduces.
type Sources struct {
	Renames   string
	Types     string
	Overrides string
	Addons    string
}

// addonMarker introduces an addon entry in the addon file. The rest of the
// marker line is "<kind> <tag text>".
const addonMarker = "ESQL:"

// Load reads all four patch sources into fresh tables with zeroed usage
// counters.
func Load(src Sources) (*Tables, error) {
	t := NewTables()

	if err := loadFile(src.Renames, t.parseRenames); err != nil {
		return nil, err
	}
	if err := loadFile(src.Types, t.parseTypes); err != nil {
		return nil, err
	}
	if err := loadFile(src.Overrides, t.parseOverrides); err != nil {
		return nil, err
	}
	if err := loadFile(src.Addons, t.parseAddons); err != nil {
		return nil, err
	}
	return t, nil
}

func loadFile(path string, parse func(path string, r io.Reader) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open patch table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parse(path, f)
}

// parseRenames reads "OLD NEW" pairs, one per line.
func (t *Tables) parseRenames(path string, r io.Reader) error {
	return eachLine(path, r, func(line string, n int) error {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return &LoadError{Path: path, Line: n, Message: "rename entry must be exactly two fields: OLD NEW"}
		}
		t.Renames[fields[0]] = fields[1]
		return nil
	})
}

// parseTypes reads "nonterminal <tag>" type overrides and
// "nonterminal ignore" suppressions.
func (t *Tables) parseTypes(path string, r io.Reader) error {
	return eachLine(path, r, func(line string, n int) error {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return &LoadError{Path: path, Line: n, Message: "type entry must be exactly two fields: NONTERMINAL ignore|<tag>"}
		}
		name, tag := fields[0], fields[1]
		entry := &SuppressionEntry{}
		switch {
		case tag == "ignore":
			entry.Ignore = true
		case strings.HasPrefix(tag, "<") && strings.HasSuffix(tag, ">"):
			entry.Type = tag
		default:
			return &LoadError{Path: path, Line: n, Message: fmt.Sprintf("bad type tag %q, want ignore or <tag>", tag)}
		}
		t.Suppressions[name] = entry
		return nil
	})
}

// parseOverrides reads "signature => ignore" and
// "signature => replacement text" entries.
func (t *Tables) parseOverrides(path string, r io.Reader) error {
	return eachLine(path, r, func(line string, n int) error {
		sig, repl, ok := strings.Cut(line, "=>")
		if !ok {
			return &LoadError{Path: path, Line: n, Message: "override entry must be SIGNATURE => ignore|REPLACEMENT"}
		}
		sig = strings.TrimSpace(sig)
		repl = strings.TrimSpace(repl)
		if sig == "" || repl == "" {
			return &LoadError{Path: path, Line: n, Message: "override entry has an empty side"}
		}
		entry := &OverrideEntry{}
		if repl == "ignore" {
			entry.Ignore = true
		} else {
			entry.Replacement = repl
		}
		t.Overrides[sig] = entry
		return nil
	})
}

// parseAddons reads the line-oriented addon file. A marker line declares a
// kind and a tag; the body lines that follow, up to the next marker or EOF,
// belong to it. Several markers stacked back to back all share the next
// body.
func (t *Tables) parseAddons(path string, r io.Reader) error {
	var pending []*AddonEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		rest, isMarker := strings.CutPrefix(strings.TrimSpace(line), addonMarker)
		if !isMarker {
			// Body line: accumulate into every pending entry.
			for _, e := range pending {
				e.Lines = append(e.Lines, line)
			}
			continue
		}

		kindWord, tag, _ := strings.Cut(strings.TrimSpace(rest), " ")
		tag = strings.TrimSpace(tag)
		kind, ok := ParseAddonKind(kindWord)
		if !ok {
			return &LoadError{Path: path, Line: lineNo, Message: fmt.Sprintf("bad addon kind %q, want block, addon or rule", kindWord)}
		}
		if tag == "" {
			return &LoadError{Path: path, Line: lineNo, Message: "addon marker is missing its tag"}
		}
		if _, dup := t.Addons[tag]; dup {
			return &DuplicateAddonTagError{Path: path, Line: lineNo, Tag: tag}
		}

		entry := &AddonEntry{Kind: kind}
		t.Addons[tag] = entry

		// A marker directly after body lines starts a fresh group; a marker
		// directly after another marker joins the current group.
		if len(pending) > 0 && len(pending[0].Lines) > 0 {
			pending = pending[:0]
		}
		pending = append(pending, entry)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read addon file %s: %w", path, err)
	}
	return nil
}

// eachLine feeds non-blank, non-comment lines to fn with 1-based numbering.
func eachLine(path string, r io.Reader, fn func(line string, n int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(line, lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
