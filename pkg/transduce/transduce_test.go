package transduce

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/esqlgen/internal/testutil"
	"github.com/leapstack-labs/esqlgen/pkg/grammar"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, grammarText string, tables *patch.Tables) string {
	t.Helper()
	if tables == nil {
		tables = patch.NewTables()
	}
	out, _, err := Generate(grammarText, tables, Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return out
}

func TestEndToEndDefaultAction(t *testing.T) {
	out := generate(t, `%token FOO
%%
widget: FOO FOO ;
`, nil)

	assert.Contains(t, out, "%type <str> widget")
	assert.Contains(t, out, "widget: FOO FOO")
	assert.Contains(t, out, `$$ = mm_strdup("FOO FOO");`)
	assert.NotContains(t, out, "cat_str")
}

func TestDeterminism(t *testing.T) {
	input := `%token A B C
%%
stmt: thing | ;
thing: A expr ;
expr: B C ;
`
	first := generate(t, input, nil)
	for range 3 {
		assert.Equal(t, first, generate(t, input, nil))
	}
}

func TestLiteralMerging(t *testing.T) {
	out := generate(t, `%token A B C
%%
foo: A B C ;
`, nil)

	assert.Contains(t, out, `{ $$ = mm_strdup("A B C"); }`)
	assert.NotContains(t, out, "cat_str")
}

func TestMixedMerging(t *testing.T) {
	out := generate(t, `%token A B C
%%
bar: A expr B ;
expr: C ;
`, nil)

	assert.Contains(t, out, `$$ = cat_str(3, mm_strdup("A"), $2, mm_strdup("B"));`)
}

func TestSingleNonterminalDirectAssignment(t *testing.T) {
	out := generate(t, `%token C
%%
wrapper: expr ;
expr: C ;
`, nil)

	assert.Contains(t, out, "{ $$ = $1; }")
}

func TestCharLiteralsMergeUnquoted(t *testing.T) {
	out := generate(t, `%token A B
%%
pair: A ',' B ;
`, nil)

	assert.Contains(t, out, "pair: A ',' B")
	assert.Contains(t, out, `$$ = mm_strdup("A , B");`)
}

func TestStatementDispatch(t *testing.T) {
	out := generate(t, `%token SELECT
%%
stmt: SelectStmt | ;
SelectStmt: SELECT ;
`, nil)

	assert.Contains(t, out, "{ output_statement($1); }")
	assert.Contains(t, out, "{ $$ = NULL; }")
}

func TestSuppressionCompleteness(t *testing.T) {
	tables := patch.NewTables()
	tables.Suppressions["hidden"] = &patch.SuppressionEntry{Ignore: true}

	out := generate(t, `%token A
%%
stmt: keeper | ;
keeper: A ;
hidden: A A ;
`, tables)

	assert.NotContains(t, out, "%type <str> hidden")
	assert.NotContains(t, out, "hidden:")
	assert.Contains(t, out, "keeper: A")
	assert.Equal(t, 1, tables.Suppressions["hidden"].Uses)
}

func TestTypeOverride(t *testing.T) {
	tables := patch.NewTables()
	tables.Suppressions["expr"] = &patch.SuppressionEntry{Type: "<node>"}

	out := generate(t, `%token A
%%
expr: A ;
`, tables)

	assert.Contains(t, out, "%type <node> expr")
	assert.NotContains(t, out, "%type <str> expr")
}

func TestOverrideIgnoreDropsOneAlternative(t *testing.T) {
	tables := patch.NewTables()
	tables.Overrides["expr A"] = &patch.OverrideEntry{Ignore: true}

	out := generate(t, `%token A B
%%
expr: A | B ;
`, tables)

	// The owner survives; only the matched alternative is gone.
	assert.Contains(t, out, "expr: B")
	assert.NotContains(t, out, "expr: A")
	assert.Equal(t, 1, tables.Overrides["expr A"].Uses)
}

func TestOverrideReplacementFeedsAddonLookup(t *testing.T) {
	tables := patch.NewTables()
	tables.Overrides["expr A"] = &patch.OverrideEntry{Replacement: "B"}
	tables.Addons["expr B"] = &patch.AddonEntry{
		Kind:  patch.KindAddon,
		Lines: []string{"check($1);"},
	}

	out := generate(t, `%token A B
%%
expr: A ;
`, tables)

	assert.Contains(t, out, "expr: B")
	assert.Contains(t, out, "check($1);")
	assert.Equal(t, 1, tables.Overrides["expr A"].Uses)
	assert.Equal(t, 1, tables.Addons["expr B"].Uses)
}

func TestAddonRuleAppendsAlternative(t *testing.T) {
	tables := patch.NewTables()
	tables.Addons["widget FOO FOO"] = &patch.AddonEntry{
		Kind:  patch.KindRule,
		Lines: []string{"| BAR { $$ = special(); }"},
	}

	out := generate(t, `%token FOO BAR
%%
widget: FOO FOO ;
`, tables)

	defaultIdx := strings.Index(out, `$$ = mm_strdup("FOO FOO");`)
	addonIdx := strings.Index(out, "| BAR { $$ = special(); }")
	require.Greater(t, defaultIdx, 0)
	require.Greater(t, addonIdx, 0)
	assert.Greater(t, addonIdx, defaultIdx, "addon alternative follows the default one")
	assert.Equal(t, 1, tables.Addons["widget FOO FOO"].Uses)
}

func TestAddonBlockReplacesAction(t *testing.T) {
	tables := patch.NewTables()
	tables.Addons["widget FOO"] = &patch.AddonEntry{
		Kind:  patch.KindBlock,
		Lines: []string{"\t{", "\t\t$$ = handmade();", "\t}"},
	}

	out := generate(t, `%token FOO
%%
widget: FOO ;
`, tables)

	assert.Contains(t, out, "$$ = handmade();")
	assert.NotContains(t, out, `mm_strdup("FOO")`)
}

func TestRenameAppliedToSymbols(t *testing.T) {
	tables := patch.NewTables()
	tables.Renames["NOT_LA"] = "NOT"

	out := generate(t, `%token NOT NOT_LA
%%
negation: NOT_LA thing ;
thing: NOT ;
`, tables)

	assert.Contains(t, out, "negation: NOT thing")
	assert.NotContains(t, out, "NOT_LA thing")
	assert.Equal(t, 1, tables.RenameUses["NOT_LA"])
}

func TestUnusedPatchEntryFailsRun(t *testing.T) {
	tables := patch.NewTables()
	tables.Overrides["nowhere X"] = &patch.OverrideEntry{Ignore: true}

	_, _, err := Generate("%%\nexpr: expr ;\n", tables, Config{})

	var integrity *patch.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.True(t, integrity.Unused())
	assert.Equal(t, "nowhere X", integrity.Key)
}

func TestAmbiguousPatchEntryFailsRun(t *testing.T) {
	tables := patch.NewTables()
	tables.Addons["expr A"] = &patch.AddonEntry{
		Kind:  patch.KindAddon,
		Lines: []string{"twice();"},
	}

	// The same alternative appears twice, so the entry fires twice.
	_, _, err := Generate(`%token A
%%
expr: A | A ;
`, tables, Config{})

	var integrity *patch.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.False(t, integrity.Unused())
}

func TestStrayRuleTerminatorIgnored(t *testing.T) {
	out := generate(t, `%token FOO
%%
widget: FOO ;;
`, nil)

	assert.Contains(t, out, "widget: FOO")
	assert.Contains(t, out, `$$ = mm_strdup("FOO");`)
	assert.Equal(t, 1, strings.Count(out, "\t;"), "one terminator per rule")
	assert.NotContains(t, out, `| { $$ = mm_strdup(""); }`, "no phantom alternative")
}

func TestStrayTerminatorBetweenRules(t *testing.T) {
	input := `%token A B
%%
first: A ;
;
second: B ;
`
	out := generate(t, input, nil)
	stats := func() Stats {
		_, s, err := Generate(input, patch.NewTables(), Config{})
		require.NoError(t, err)
		return s
	}()

	assert.Contains(t, out, "first: A")
	assert.Contains(t, out, "second: B")
	assert.Equal(t, 2, stats.Rules)
	assert.Equal(t, 2, stats.Alternatives)
}

func TestUnsupportedFeatureWarning(t *testing.T) {
	out := generate(t, `%token A
%%
expr: A { ereport(ERROR, errcode(ERRCODE_FEATURE_NOT_SUPPORTED)); } ;
`, nil)

	assert.Contains(t, out, unsupportedWarning)
	assert.Contains(t, out, `$$ = mm_strdup("A");`)
}

func TestUnsupportedFeatureWarningGuarded(t *testing.T) {
	out := generate(t, `%token A
%%
expr: A { #ifndef HAVE_THING FEATURE_NOT_SUPPORTED #endif } ;
`, nil)

	assert.NotContains(t, out, unsupportedWarning)
}

func TestUnsupportedFeatureWarningInMidRuleAction(t *testing.T) {
	out := generate(t, `%token A B
%%
expr: A { ereport(ERROR, errcode(ERRCODE_FEATURE_NOT_SUPPORTED)); } B { free(x); } ;
`, nil)

	assert.Contains(t, out, unsupportedWarning)
	assert.Contains(t, out, `$$ = mm_strdup("A B");`)
}

func TestCreateAsStmtExemptFromWarning(t *testing.T) {
	out := generate(t, `%token CREATE EXECUTE
%%
CreateAsStmt: CREATE EXECUTE { ereport(ERROR, errcode(ERRCODE_FEATURE_NOT_SUPPORTED)); } ;
`, nil)

	assert.NotContains(t, out, unsupportedWarning)
}

func TestNoOutputOnStructuralError(t *testing.T) {
	out, _, err := Generate("%%\nexpr: A { broken\n", patch.NewTables(), Config{})

	var unterminated *grammar.UnterminatedActionError
	require.ErrorAs(t, err, &unterminated)
	assert.Empty(t, out)
}

func TestGenerateSnippetsAndStartRule(t *testing.T) {
	out, _, err := Generate("%%\nstmt: ;\n", patch.NewTables(), Config{
		StartRule: "prog: statement;",
		Snippets: Snippets{
			Header:  "%{ #include \"preproc_ext.h\" %}\n",
			Tokens:  "%token CSTRING\n",
			Trailer: "metacommand: CSTRING ;\n",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `#include "preproc_ext.h"`)
	assert.Contains(t, out, "%token CSTRING")
	assert.Contains(t, out, "prog: statement;")
	assert.Contains(t, out, "metacommand: CSTRING ;")
}

func TestRunWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	grammarPath := filepath.Join(dir, "gram.y")
	outputPath := filepath.Join(dir, "preproc.y")
	require.NoError(t, os.WriteFile(grammarPath, []byte("%token FOO\n%%\nwidget: FOO ;\n"), 0o644))
	require.NoError(t, os.WriteFile(outputPath, []byte("previous output"), 0o644))

	// Failing run: grammar has no rule matching the patch entry.
	snippets := filepath.Join(dir, "snippets")
	require.NoError(t, os.MkdirAll(snippets, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snippets, FileTypes), []byte("ghost ignore\n"), 0o644))

	_, err := Run(Options{GrammarPath: grammarPath, SnippetsDir: snippets, OutputPath: outputPath})
	require.Error(t, err)

	kept, readErr := os.ReadFile(outputPath)
	require.NoError(t, readErr)
	assert.Equal(t, "previous output", string(kept), "failed run must not clobber previous output")

	// Successful run replaces it.
	require.NoError(t, os.Remove(filepath.Join(snippets, FileTypes)))
	res, err := Run(Options{GrammarPath: grammarPath, SnippetsDir: snippets, OutputPath: outputPath})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Rules)

	written, readErr := os.ReadFile(outputPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(written), "widget: FOO")
	assert.NoFileExists(t, outputPath+".tmp")
}

func TestRunLoadsPatchTablesFromSnippetsDir(t *testing.T) {
	dir := t.TempDir()
	grammarPath := filepath.Join(dir, "gram.y")
	require.NoError(t, os.WriteFile(grammarPath, []byte(`%token FOO BAR
%%
widget: FOO FOO ;
`), 0o644))

	snippets := filepath.Join(dir, "snippets")
	require.NoError(t, os.MkdirAll(snippets, 0o755))
	addons := "ESQL: rule widget FOO FOO\n| BAR { $$ = special(); }\n"
	require.NoError(t, os.WriteFile(filepath.Join(snippets, FileAddons), []byte(addons), 0o644))

	res, err := Run(Options{GrammarPath: grammarPath, SnippetsDir: snippets})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "| BAR { $$ = special(); }")
	assert.Equal(t, 1, res.Stats.Addons)
}
