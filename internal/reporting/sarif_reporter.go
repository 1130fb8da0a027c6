// Filename: reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/lancet/api/schemas"
	"github.com/xkilldash9x/lancet/internal/reporting/sarif"
)

const (
	toolName     = "lancet"
	toolInfoURI  = "https://github.com/xkilldash9x/lancet"
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// SARIFReporter converts the aggregate result into a single-run SARIF log.
type SARIFReporter struct {
	w           io.Writer
	toolVersion string
}

func NewSARIFReporter(w io.Writer, toolVersion string) *SARIFReporter {
	return &SARIFReporter{w: w, toolVersion: toolVersion}
}

func (r *SARIFReporter) Write(result *schemas.Result) error {
	driver := &sarif.ToolComponent{
		Name:           toolName,
		Version:        pString(r.toolVersion),
		InformationURI: pString(toolInfoURI),
		Rules:          []*sarif.ReportingDescriptor{},
	}
	run := &sarif.Run{
		Tool:    &sarif.Tool{Driver: driver},
		Results: []*sarif.Result{},
	}

	seenRules := map[string]bool{}
	for _, f := range result.Findings {
		if !seenRules[f.RuleID] {
			seenRules[f.RuleID] = true
			driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
				ID:   f.RuleID,
				Name: pString(string(f.Class)),
				ShortDescription: &sarif.MultiformatMessageString{
					Text: pString(ruleDescription(f.Class)),
				},
			})
		}
		run.Results = append(run.Results, r.convert(f))
	}

	log := &sarif.Log{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs:    []*sarif.Run{run},
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sarif log: %w", err)
	}
	data = append(data, '\n')
	_, err = r.w.Write(data)
	return err
}

func (r *SARIFReporter) convert(f schemas.Finding) *sarif.Result {
	msg := fmt.Sprintf("Tainted data from %s reaches %s", f.SourceLabel, f.SinkLabel)
	props := sarif.PropertyBag{
		"confidence":  string(f.Confidence),
		"path_length": f.PathLength,
	}
	if f.Speculative {
		props["speculative"] = true
	}
	if f.Truncated {
		props["truncated"] = true
	}
	if len(f.SanitizersFound) > 0 {
		props["sanitizers_found"] = f.SanitizersFound
	}
	return &sarif.Result{
		RuleID:  f.RuleID,
		Message: &sarif.Message{Text: pString(msg)},
		Level:   levelFor(f.Confidence),
		Locations: []*sarif.Location{{
			PhysicalLocation: &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: pString(f.File)},
				Region: &sarif.Region{
					StartLine:   f.Line,
					StartColumn: f.Column,
				},
			},
		}},
		Properties: &props,
	}
}

func levelFor(c schemas.Confidence) sarif.Level {
	switch c {
	case schemas.ConfidenceHigh:
		return sarif.LevelError
	case schemas.ConfidenceMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func ruleDescription(class schemas.VulnClass) string {
	switch class {
	case schemas.ClassXSS:
		return "Cross-site scripting via tainted template or response data"
	case schemas.ClassSQLI:
		return "SQL injection via tainted query construction"
	case schemas.ClassCMDI:
		return "Command injection via tainted process arguments"
	case schemas.ClassPath:
		return "Path traversal via tainted filesystem access"
	case schemas.ClassURL:
		return "Server-side request forgery via tainted URL"
	case schemas.ClassCode:
		return "Code execution via tainted dynamic evaluation"
	default:
		return "Tainted data flow"
	}
}

func pString(s string) *string { return &s }
