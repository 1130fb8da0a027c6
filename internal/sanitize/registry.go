// Filename: sanitize/registry.go
// Package sanitize maps qualified call paths to the vulnerability classes
// they neutralize. Matching is exact: a sanitizer clears taint only for its
// listed classes, and everything not in the table passes taint through.
package sanitize

import (
	"fmt"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/lancet/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one sanitizer row, as stored in an override table file.
type Entry struct {
	QualifiedName string              `json:"qualified_name"`
	Classes       []schemas.VulnClass `json:"vulnerability_classes"`
}

// Registry answers "does calling this neutralize that class".
type Registry struct {
	table map[string]map[schemas.VulnClass]bool
}

// NewRegistry returns a registry seeded with the built-in Python table.
func NewRegistry() *Registry {
	r := &Registry{table: map[string]map[schemas.VulnClass]bool{}}
	for _, e := range defaults {
		r.add(e)
	}
	return r
}

// LoadTable replaces the built-in table with entries from a JSON file.
func LoadTable(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sanitizer table: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing sanitizer table %s: %w", path, err)
	}
	r := &Registry{table: map[string]map[schemas.VulnClass]bool{}}
	for _, e := range entries {
		r.add(e)
	}
	return r, nil
}

func (r *Registry) add(e Entry) {
	set := r.table[e.QualifiedName]
	if set == nil {
		set = map[schemas.VulnClass]bool{}
		r.table[e.QualifiedName] = set
	}
	for _, c := range e.Classes {
		set[c] = true
	}
}

// Sanitizes reports whether the qualified callee clears the given class.
func (r *Registry) Sanitizes(qualifiedName string, class schemas.VulnClass) bool {
	return r.table[qualifiedName][class]
}

// ClassesFor returns the classes a callee sanitizes, sorted, or nil when the
// callee is not a sanitizer.
func (r *Registry) ClassesFor(qualifiedName string) []schemas.VulnClass {
	set := r.table[qualifiedName]
	if len(set) == 0 {
		return nil
	}
	out := make([]schemas.VulnClass, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSanitizer reports whether the callee appears in the table at all.
func (r *Registry) IsSanitizer(qualifiedName string) bool {
	return len(r.table[qualifiedName]) > 0
}

// defaults covers the common Python standard library and framework escape
// helpers. html.escape stops XSS but does nothing for SQL injection; the
// class lists are deliberately narrow.
var defaults = []Entry{
	{QualifiedName: "html.escape", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{QualifiedName: "markupsafe.escape", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{QualifiedName: "django.utils.html.escape", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{QualifiedName: "bleach.clean", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{QualifiedName: "shlex.quote", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{QualifiedName: "pipes.quote", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{QualifiedName: "urllib.parse.quote", Classes: []schemas.VulnClass{schemas.ClassURL, schemas.ClassXSS}},
	{QualifiedName: "urllib.parse.quote_plus", Classes: []schemas.VulnClass{schemas.ClassURL, schemas.ClassXSS}},
	{QualifiedName: "urllib.parse.urlencode", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{QualifiedName: "os.path.basename", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{QualifiedName: "werkzeug.utils.secure_filename", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{QualifiedName: "psycopg2.extensions.quote_ident", Classes: []schemas.VulnClass{schemas.ClassSQLI}},
	{QualifiedName: "ast.literal_eval", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{QualifiedName: "json.dumps", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{QualifiedName: "int", Classes: []schemas.VulnClass{schemas.ClassSQLI, schemas.ClassCMDI, schemas.ClassPath, schemas.ClassXSS, schemas.ClassURL, schemas.ClassCode}},
	{QualifiedName: "float", Classes: []schemas.VulnClass{schemas.ClassSQLI, schemas.ClassCMDI, schemas.ClassPath, schemas.ClassXSS, schemas.ClassURL, schemas.ClassCode}},
	{QualifiedName: "bool", Classes: []schemas.VulnClass{schemas.ClassSQLI, schemas.ClassCMDI, schemas.ClassPath, schemas.ClassXSS, schemas.ClassURL, schemas.ClassCode}},
}
