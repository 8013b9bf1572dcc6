package patch

import "fmt"

// LoadError reports a malformed line in one of the patch table sources.
type LoadError struct {
	Path    string
	Line    int
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}

// DuplicateAddonTagError reports an addon tag declared twice in the addon
// file.
type DuplicateAddonTagError struct {
	Path string
	Line int
	Tag  string
}

func (e *DuplicateAddonTagError) Error() string {
	return fmt.Sprintf("%s:%d: duplicate addon tag %q", e.Path, e.Line, e.Tag)
}

// IntegrityError reports a patch table entry that did not fire exactly once
// during a run. Unused entries are stale (the grammar no longer has the rule
// they patch); entries that fired more than once are ambiguous.
type IntegrityError struct {
	Table string
	Key   string
	Uses  int
}

func (e *IntegrityError) Error() string {
	if e.Uses == 0 {
		return fmt.Sprintf("unused patch entry in %s table: %q", e.Table, e.Key)
	}
	return fmt.Sprintf("ambiguous patch entry in %s table: %q matched %d times", e.Table, e.Key, e.Uses)
}

// Unused reports whether the entry never fired.
func (e *IntegrityError) Unused() bool { return e.Uses == 0 }
