package schemas

// VulnClass identifies a vulnerability class for sanitizer matching. A
// sanitizer clears taint only for the classes it is registered against.
type VulnClass string

const (
	ClassXSS  VulnClass = "xss"
	ClassSQLI VulnClass = "sqli"
	ClassCMDI VulnClass = "cmdi"
	ClassPath VulnClass = "path"
	ClassURL  VulnClass = "url"
	ClassCode VulnClass = "code"
)

// Confidence expresses how reliable a finding is. Speculative call edges and
// truncated propagation paths downgrade confidence, they never suppress the
// finding outright.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Finding is one confirmed taint path from a source to a sink.
type Finding struct {
	RuleID          string     `json:"rule_id"`
	Class           VulnClass  `json:"class"`
	File            string     `json:"file"`
	Line            int        `json:"line"`
	Column          int        `json:"column"`
	SourceLabel     string     `json:"source_label"`
	SinkLabel       string     `json:"sink_label"`
	SanitizersFound []string   `json:"sanitizers_found"`
	PathLength      int        `json:"path_length"`
	Confidence      Confidence `json:"confidence"`
	Speculative     bool       `json:"speculative,omitempty"`
	Truncated       bool       `json:"truncated,omitempty"`
}

// SkipReason explains why a file was excluded from analysis instead of being
// analyzed. Exclusion is always explicit, never silent.
type SkipReason string

const (
	SkipParseError SkipReason = "parse_error"
	SkipObfuscated SkipReason = "obfuscated"
	SkipBinary     SkipReason = "binary"
	SkipReadError  SkipReason = "read_error"
	SkipDeadline   SkipReason = "deadline"
)

// SkippedFile is the per-file error entry appended to the aggregate result
// when a recoverable-per-file failure occurs.
type SkippedFile struct {
	File    string     `json:"file"`
	Reason  SkipReason `json:"reason"`
	Detail  string     `json:"detail,omitempty"`
	Reasons []string   `json:"reasons,omitempty"`
}

// Stats surfaces coverage loss alongside findings so that degradation is
// observable rather than silent.
type Stats struct {
	FilesAnalyzed    int `json:"files_analyzed"`
	FilesReused      int `json:"files_reused"`
	FilesSkipped     int `json:"files_skipped"`
	UnscannableCalls int `json:"unscannable_calls"`
	SpeculativeCalls int `json:"speculative_calls"`
	TruncatedPaths   int `json:"truncated_paths"`
}

// FileResult is the isolated output of one per-file analysis task.
type FileResult struct {
	File             string    `json:"file"`
	ContentHash      string    `json:"content_hash"`
	Graph            *Graph    `json:"graph,omitempty"`
	Findings         []Finding `json:"findings"`
	UnscannableCalls int       `json:"unscannable_calls"`
	SpeculativeCalls int       `json:"speculative_calls"`
	TruncatedPaths   int       `json:"truncated_paths"`
	ReusedIR         bool      `json:"reused_ir,omitempty"`
}

// Result is the aggregate outcome of one analysis run.
type Result struct {
	ScanID   string        `json:"scan_id"`
	Files    []*FileResult `json:"files"`
	Skipped  []SkippedFile `json:"skipped"`
	Findings []Finding     `json:"findings"`
	Stats    Stats         `json:"stats"`
}
