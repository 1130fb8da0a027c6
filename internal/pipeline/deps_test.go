// Filename: pipeline/deps_test.go
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lancet/internal/ir"
)

func TestDepGraphDependentsSorted(t *testing.T) {
	d := NewDepGraph()
	d.RecordImports("z.py", []string{"helpers"})
	d.RecordImports("a.py", []string{"helpers", "os"})

	require.Equal(t, []string{"a.py", "z.py"}, d.Dependents("helpers"))
	require.Equal(t, []string{"a.py"}, d.Dependents("os"))
	require.Empty(t, d.Dependents("unknown"))
	require.Equal(t, []string{"helpers", "os"}, d.Imports("a.py"))
}

func TestDepGraphRecordFileExtractsModules(t *testing.T) {
	logger := zaptest.NewLogger(t)
	res, err := ir.NewBuilder(logger, 200).Build(context.Background(), "app.py", []byte(`
import os
import helpers
from flask import request
`))
	require.NoError(t, err)

	d := NewDepGraph()
	d.RecordFile("app.py", res.Graph)
	require.Equal(t, []string{"flask", "helpers", "os"}, d.Imports("app.py"))
	require.Equal(t, []string{"app.py"}, d.Dependents("helpers"))
}

func TestIncrementalNewDependencyInvalidatesImporter(t *testing.T) {
	conf := testConfig(t)
	conf.Pipeline.Incremental = true
	dir := writeProject(t, map[string]string{
		"app.py": "import os\nimport helpers\nos.system(helpers.value())\n",
	})
	runScan(t, conf, dir)

	// The import only resolves on the second run, once the module exists.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"),
		[]byte("def value():\n    return input()\n"), 0o644))
	second := runScan(t, conf, dir)

	require.Equal(t, 2, second.Stats.FilesAnalyzed)
	require.Zero(t, second.Stats.FilesReused)
}
