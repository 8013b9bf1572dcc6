package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenames(t *testing.T) {
	tables := NewTables()
	input := `
# token renames
NOT_LA NOT
WITH_LA WITH
`
	err := tables.parseRenames("token.rename", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "NOT", tables.Rename("NOT_LA"))
	assert.Equal(t, "WITH", tables.Rename("WITH_LA"))
	assert.Equal(t, "SELECT", tables.Rename("SELECT"), "unmapped tokens pass through")
}

func TestParseRenamesBadLine(t *testing.T) {
	tables := NewTables()
	err := tables.parseRenames("token.rename", strings.NewReader("NOT_LA\n"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 1, loadErr.Line)
}

func TestParseTypes(t *testing.T) {
	tables := NewTables()
	input := `
ColLabel <str>
PLpgSQL_Expr ignore
`
	err := tables.parseTypes("rules.types", strings.NewReader(input))
	require.NoError(t, err)

	col, ok := tables.Suppression("ColLabel")
	require.True(t, ok)
	assert.Equal(t, "<str>", col.Type)
	assert.False(t, col.Ignore)

	expr, ok := tables.Suppression("PLpgSQL_Expr")
	require.True(t, ok)
	assert.True(t, expr.Ignore)
}

func TestParseTypesRejectsBareTag(t *testing.T) {
	tables := NewTables()
	err := tables.parseTypes("rules.types", strings.NewReader("ColLabel str\n"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "bad type tag")
}

func TestParseOverrides(t *testing.T) {
	tables := NewTables()
	input := `
stmt UNLISTEN ALL => ignore
var_value opt_boolean_or_string => opt_boolean_or_string
`
	err := tables.parseOverrides("rules.overrides", strings.NewReader(input))
	require.NoError(t, err)

	ign, ok := tables.Override("stmt UNLISTEN ALL")
	require.True(t, ok)
	assert.True(t, ign.Ignore)

	repl, ok := tables.Override("var_value opt_boolean_or_string")
	require.True(t, ok)
	assert.Equal(t, "opt_boolean_or_string", repl.Replacement)
}

func TestParseAddons(t *testing.T) {
	tables := NewTables()
	input := `ESQL: block stmt TransactionStmt
	$$ = mm_strdup("begin");
ESQL: addon stmt DeclareCursorStmt
ESQL: addon stmt ClosePortalStmt
	check_declared_list($1);
ESQL: rule widget FOO FOO
	| BAR { $$ = special(); }
`
	err := tables.parseAddons("rules.addons", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tables.Addons, 4)

	block, ok := tables.Addon("stmt TransactionStmt")
	require.True(t, ok)
	assert.Equal(t, KindBlock, block.Kind)
	assert.Equal(t, []string{"\t$$ = mm_strdup(\"begin\");"}, block.Lines)

	// Back-to-back markers share the body that follows.
	declare, ok := tables.Addon("stmt DeclareCursorStmt")
	require.True(t, ok)
	closePortal, ok := tables.Addon("stmt ClosePortalStmt")
	require.True(t, ok)
	assert.Equal(t, []string{"\tcheck_declared_list($1);"}, declare.Lines)
	assert.Equal(t, declare.Lines, closePortal.Lines)

	rule, ok := tables.Addon("widget FOO FOO")
	require.True(t, ok)
	assert.Equal(t, KindRule, rule.Kind)
}

func TestParseAddonsDuplicateTag(t *testing.T) {
	tables := NewTables()
	input := `ESQL: block stmt TransactionStmt
	body();
ESQL: block stmt TransactionStmt
	other();
`
	err := tables.parseAddons("rules.addons", strings.NewReader(input))

	var dupErr *DuplicateAddonTagError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "stmt TransactionStmt", dupErr.Tag)
	assert.Equal(t, 3, dupErr.Line)
}

func TestParseAddonsBadKind(t *testing.T) {
	tables := NewTables()
	err := tables.parseAddons("rules.addons", strings.NewReader("ESQL: splice stmt Foo\n"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "bad addon kind")
}

func TestLoadMissingFilesAreFatal(t *testing.T) {
	_, err := Load(Sources{Renames: "testdata/does-not-exist"})
	require.Error(t, err)
}

func TestLoadEmptySourcesIsValid(t *testing.T) {
	tables, err := Load(Sources{})
	require.NoError(t, err)
	assert.Empty(t, tables.Renames)
	assert.NoError(t, tables.Check())
}
