// Filename: reporting/reporter.go
// Package reporting serializes scan results. Two formats are supported:
// plain JSON for machine consumption and SARIF 2.1.0 for code scanning
// integrations.
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/lancet/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes one aggregate result to its destination.
type Reporter interface {
	Write(result *schemas.Result) error
}

// NewReporter selects a reporter by format name.
func NewReporter(format string, w io.Writer, toolVersion string) (Reporter, error) {
	switch format {
	case "json":
		return &JSONReporter{w: w, pretty: true}, nil
	case "sarif":
		return NewSARIFReporter(w, toolVersion), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json or sarif)", format)
	}
}

// JSONReporter emits the result verbatim.
type JSONReporter struct {
	w      io.Writer
	pretty bool
}

func (r *JSONReporter) Write(result *schemas.Result) error {
	var (
		data []byte
		err  error
	)
	if r.pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')
	_, err = r.w.Write(data)
	return err
}
