package patch

// Table names used in integrity diagnostics and table dumps.
const (
	TableRenames      = "rename"
	TableSuppressions = "suppression"
	TableOverrides    = "override"
	TableAddons       = "addon"
)

// Check enforces the exactly-once contract after a full pass: every
// suppression, override, and addon entry must have been consulted exactly
// one time. Rename entries are exempt, a token can appear any number of
// times. The first violation in stable table/key order is returned so reruns
// fail identically.
func (t *Tables) Check() error {
	for _, key := range sortedKeys(t.Suppressions) {
		if uses := t.Suppressions[key].Uses; uses != 1 {
			return &IntegrityError{Table: TableSuppressions, Key: key, Uses: uses}
		}
	}
	for _, key := range sortedKeys(t.Overrides) {
		if uses := t.Overrides[key].Uses; uses != 1 {
			return &IntegrityError{Table: TableOverrides, Key: key, Uses: uses}
		}
	}
	for _, key := range sortedKeys(t.Addons) {
		if uses := t.Addons[key].Uses; uses != 1 {
			return &IntegrityError{Table: TableAddons, Key: key, Uses: uses}
		}
	}
	return nil
}

// Row is a flattened view of one patch entry, used by table dumps.
type Row struct {
	Table string `json:"table" yaml:"table"`
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Uses  int    `json:"uses" yaml:"uses"`
}

// Rows flattens all four tables into a stable-ordered slice for reporting.
func (t *Tables) Rows() []Row {
	var rows []Row
	for _, key := range sortedKeys(t.Renames) {
		rows = append(rows, Row{Table: TableRenames, Key: key, Value: t.Renames[key], Uses: t.RenameUses[key]})
	}
	for _, key := range sortedKeys(t.Suppressions) {
		e := t.Suppressions[key]
		val := e.Type
		if e.Ignore {
			val = "ignore"
		}
		rows = append(rows, Row{Table: TableSuppressions, Key: key, Value: val, Uses: e.Uses})
	}
	for _, key := range sortedKeys(t.Overrides) {
		e := t.Overrides[key]
		val := e.Replacement
		if e.Ignore {
			val = "ignore"
		}
		rows = append(rows, Row{Table: TableOverrides, Key: key, Value: val, Uses: e.Uses})
	}
	for _, key := range sortedKeys(t.Addons) {
		e := t.Addons[key]
		rows = append(rows, Row{Table: TableAddons, Key: key, Value: e.Kind.String(), Uses: e.Uses})
	}
	return rows
}
