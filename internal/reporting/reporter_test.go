// Filename: reporting/reporter_test.go
package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/lancet/api/schemas"
)

func sampleResult() *schemas.Result {
	return &schemas.Result{
		ScanID: "scan-1",
		Findings: []schemas.Finding{
			{
				RuleID:      "PY.TAINT.CMDI",
				Class:       schemas.ClassCMDI,
				File:        "app.py",
				Line:        3,
				Column:      1,
				SourceLabel: "builtins.input",
				SinkLabel:   "os.system",
				PathLength:  3,
				Confidence:  schemas.ConfidenceHigh,
			},
			{
				RuleID:          "PY.TAINT.SQLI",
				Class:           schemas.ClassSQLI,
				File:            "views.py",
				Line:            10,
				Column:          5,
				SourceLabel:     "flask.request",
				SinkLabel:       "cursor.execute",
				SanitizersFound: []string{"html.escape"},
				PathLength:      5,
				Confidence:      schemas.ConfidenceMedium,
				Speculative:     true,
			},
		},
		Stats: schemas.Stats{FilesAnalyzed: 2},
	}
}

func TestNewReporterRejectsUnknownFormat(t *testing.T) {
	_, err := NewReporter("xml", &bytes.Buffer{}, "0.1.0")
	require.Error(t, err)
}

func TestJSONReporterRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewReporter("json", &buf, "0.1.0")
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleResult()))

	var decoded schemas.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "scan-1", decoded.ScanID)
	require.Len(t, decoded.Findings, 2)
	require.Equal(t, "PY.TAINT.CMDI", decoded.Findings[0].RuleID)
	require.Equal(t, 2, decoded.Stats.FilesAnalyzed)
}

func TestSARIFOutputShape(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewReporter("sarif", &buf, "0.1.0")
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleResult()))

	var log map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	require.Equal(t, "2.1.0", log["version"])

	runs := log["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)

	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	require.Equal(t, "lancet", driver["name"])
	require.Equal(t, "0.1.0", driver["version"])
	require.Len(t, driver["rules"].([]any), 2)

	results := run["results"].([]any)
	require.Len(t, results, 2)

	first := results[0].(map[string]any)
	require.Equal(t, "PY.TAINT.CMDI", first["ruleId"])
	require.Equal(t, "error", first["level"])
	loc := first["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)
	require.Equal(t, "app.py", loc["artifactLocation"].(map[string]any)["uri"])
	region := loc["region"].(map[string]any)
	require.EqualValues(t, 3, region["startLine"])

	second := results[1].(map[string]any)
	require.Equal(t, "warning", second["level"])
	props := second["properties"].(map[string]any)
	require.Equal(t, true, props["speculative"])
	require.Contains(t, props["sanitizers_found"], "html.escape")
}

func TestSARIFDuplicateRulesCollapsed(t *testing.T) {
	res := sampleResult()
	res.Findings = append(res.Findings, res.Findings[0])

	var buf bytes.Buffer
	require.NoError(t, NewSARIFReporter(&buf, "0.1.0").Write(res))

	var log map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	run := log["runs"].([]any)[0].(map[string]any)
	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	require.Len(t, driver["rules"].([]any), 2, "rule table stays deduplicated")
	require.Len(t, run["results"].([]any), 3)
}
