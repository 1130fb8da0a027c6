// Filename: pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Test Helpers --

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf := config.Defaults()
	conf.Pipeline.Concurrency = 2
	conf.Pipeline.ManifestPath = filepath.Join(t.TempDir(), "manifest.json")
	return conf
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func runScan(t *testing.T, conf *config.Config, roots ...string) *schemas.Result {
	t.Helper()
	p, err := New(conf, zaptest.NewLogger(t))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), roots)
	require.NoError(t, err)
	return res
}

// -- Tests --

func TestRunFindsTaintedSink(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py": "import os\ncmd = input()\nos.system(cmd)\n",
	})
	res := runScan(t, testConfig(t), dir)

	require.NotEmpty(t, res.ScanID)
	require.Equal(t, 1, res.Stats.FilesAnalyzed)
	require.Len(t, res.Findings, 1)
	require.Equal(t, "PY.TAINT.CMDI", res.Findings[0].RuleID)
	require.Len(t, res.Files, 1)
	require.Len(t, res.Files[0].Findings, 1)
	require.NotEmpty(t, res.Files[0].ContentHash)
}

func TestRunSkipsVendoredAndHiddenDirs(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py":              "x = 1\n",
		"venv/lib.py":         "import os\nos.system(input())\n",
		"__pycache__/gen.py":  "x = 2\n",
		".git/hooks/prune.py": "x = 3\n",
	})
	res := runScan(t, testConfig(t), dir)

	require.Len(t, res.Files, 1)
	require.Equal(t, filepath.Join(dir, "app.py"), res.Files[0].File)
	require.Empty(t, res.Findings)
}

func TestObfuscatedFileBecomesSkipEntry(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py":    "x = 1\n",
		"packed.py": "payload = \"ab\x00cd\"\n",
	})
	res := runScan(t, testConfig(t), dir)

	require.Len(t, res.Files, 1)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, schemas.SkipObfuscated, res.Skipped[0].Reason)
	require.Contains(t, res.Skipped[0].Reasons, "null_byte")
	require.Equal(t, 1, res.Stats.FilesSkipped)
}

func TestBinaryRootBecomesSkipEntry(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "lib.pyc")
	require.NoError(t, os.WriteFile(bin, []byte{0x4d, 0x0d, 0x0a}, 0o644))

	res := runScan(t, testConfig(t), bin)
	require.Empty(t, res.Files)
	require.Len(t, res.Skipped, 1)
	require.Equal(t, schemas.SkipBinary, res.Skipped[0].Reason)
}

func TestMissingRootBecomesReadErrorEntry(t *testing.T) {
	res := runScan(t, testConfig(t), filepath.Join(t.TempDir(), "nope"))
	require.Len(t, res.Skipped, 1)
	require.Equal(t, schemas.SkipReadError, res.Skipped[0].Reason)
}

func TestIncrementalSecondRunReusesFindings(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py": "import os\nos.system(input())\n",
	})
	conf := testConfig(t)
	conf.Pipeline.Incremental = true

	first := runScan(t, conf, dir)
	require.Equal(t, 1, first.Stats.FilesAnalyzed)
	require.Zero(t, first.Stats.FilesReused)
	require.Len(t, first.Findings, 1)

	second := runScan(t, conf, dir)
	require.Zero(t, second.Stats.FilesAnalyzed)
	require.Equal(t, 1, second.Stats.FilesReused)
	require.Len(t, second.Findings, 1, "cached findings replay on reuse")
	require.True(t, second.Files[0].ReusedIR)
}

func TestIncrementalChangedFileIsReanalyzed(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py": "import os\nos.system(input())\n",
	})
	conf := testConfig(t)
	conf.Pipeline.Incremental = true

	runScan(t, conf, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"),
		[]byte("import os\nos.system(\"ls\")\n"), 0o644))

	second := runScan(t, conf, dir)
	require.Equal(t, 1, second.Stats.FilesAnalyzed)
	require.Zero(t, second.Stats.FilesReused)
	require.Empty(t, second.Findings)
}

func TestIncrementalDependentInvalidatedByImportChange(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"helpers.py": "def greet():\n    return \"hi\"\n",
		"app.py":     "import helpers\nx = helpers.greet()\n",
	})
	conf := testConfig(t)
	conf.Pipeline.Incremental = true

	runScan(t, conf, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"),
		[]byte("def greet():\n    return input()\n"), 0o644))

	second := runScan(t, conf, dir)
	// app.py imports helpers, so the helpers change invalidates both.
	require.Equal(t, 2, second.Stats.FilesAnalyzed)
	require.Zero(t, second.Stats.FilesReused)
}

func TestInvalidConfigRejectedByNew(t *testing.T) {
	conf := testConfig(t)
	conf.Pipeline.Concurrency = 0
	_, err := New(conf, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestCallAnnotationsLandInStats(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"app.py": "handlers[0]()\nconn.commit()\n",
	})
	res := runScan(t, testConfig(t), dir)
	require.Equal(t, 2, res.Stats.UnscannableCalls)
	require.Len(t, res.Files, 1)
	require.Equal(t, 2, res.Files[0].UnscannableCalls)
}
