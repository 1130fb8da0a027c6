// Filename: sanitize/registry_test.go
package sanitize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/lancet/api/schemas"
)

func TestSanitizerClearsOnlyItsClasses(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Sanitizes("html.escape", schemas.ClassXSS))
	require.False(t, r.Sanitizes("html.escape", schemas.ClassSQLI))
	require.False(t, r.Sanitizes("html.escape", schemas.ClassCMDI))

	require.True(t, r.Sanitizes("shlex.quote", schemas.ClassCMDI))
	require.False(t, r.Sanitizes("shlex.quote", schemas.ClassXSS))
}

func TestConversionSanitizesEverything(t *testing.T) {
	r := NewRegistry()
	for _, class := range []schemas.VulnClass{
		schemas.ClassSQLI, schemas.ClassCMDI, schemas.ClassPath,
		schemas.ClassXSS, schemas.ClassURL, schemas.ClassCode,
	} {
		require.True(t, r.Sanitizes("int", class), "int() must clear %s", class)
	}
}

func TestUnknownCalleeIsNotASanitizer(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.IsSanitizer("myapp.scrub"))
	require.Nil(t, r.ClassesFor("myapp.scrub"))
}

func TestClassesForSorted(t *testing.T) {
	r := NewRegistry()
	classes := r.ClassesFor("urllib.parse.quote")
	require.Len(t, classes, 2)
	require.Equal(t, schemas.ClassURL, classes[0])
	require.Equal(t, schemas.ClassXSS, classes[1])
}

func TestLoadTableReplacesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sanitizers.json")
	table := `[
  {"qualified_name": "myapp.scrub", "vulnerability_classes": ["xss", "sqli"]}
]`
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	r, err := LoadTable(path)
	require.NoError(t, err)

	require.True(t, r.Sanitizes("myapp.scrub", schemas.ClassXSS))
	require.True(t, r.Sanitizes("myapp.scrub", schemas.ClassSQLI))
	require.False(t, r.Sanitizes("myapp.scrub", schemas.ClassCMDI))
	// Built-ins are gone once an override table is loaded.
	require.False(t, r.IsSanitizer("html.escape"))
}

func TestLoadTableRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadTable(path)
	require.Error(t, err)
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
