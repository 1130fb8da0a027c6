// Filename: taint/definitions.go
package taint

import (
	"strings"

	"github.com/xkilldash9x/lancet/api/schemas"
)

// SourceDef marks an expression shape that introduces attacker-controlled
// data.
type SourceDef struct {
	// Path is a qualified attribute or call path. Prefix entries end the
	// match at a dot boundary, so "request.args" covers "request.args.get".
	Path   string
	Prefix bool
	Label  string
}

// SinkDef marks a call whose tainted arguments constitute a finding.
type SinkDef struct {
	// Path matches the resolved callee. Suffix entries match any receiver,
	// covering "cursor.execute" and "self.db.execute" alike.
	Path    string
	Suffix  bool
	Label   string
	Classes []schemas.VulnClass
}

// -- Sources --

var sources = []SourceDef{
	// Flask / Werkzeug request surface.
	{Path: "request.args", Prefix: true, Label: "flask.request.args"},
	{Path: "request.form", Prefix: true, Label: "flask.request.form"},
	{Path: "request.values", Prefix: true, Label: "flask.request.values"},
	{Path: "request.json", Prefix: true, Label: "flask.request.json"},
	{Path: "request.get_json", Prefix: true, Label: "flask.request.get_json"},
	{Path: "request.cookies", Prefix: true, Label: "flask.request.cookies"},
	{Path: "request.headers", Prefix: true, Label: "flask.request.headers"},
	{Path: "request.files", Prefix: true, Label: "flask.request.files"},
	{Path: "request.data", Prefix: true, Label: "flask.request.data"},
	{Path: "flask.request", Prefix: true, Label: "flask.request"},
	// Django request surface.
	{Path: "request.GET", Prefix: true, Label: "django.request.GET"},
	{Path: "request.POST", Prefix: true, Label: "django.request.POST"},
	{Path: "request.body", Prefix: true, Label: "django.request.body"},
	{Path: "request.META", Prefix: true, Label: "django.request.META"},
	// Process environment and terminal input.
	{Path: "input", Label: "builtins.input"},
	{Path: "raw_input", Label: "builtins.raw_input"},
	{Path: "sys.argv", Prefix: true, Label: "sys.argv"},
	{Path: "sys.stdin", Prefix: true, Label: "sys.stdin"},
	{Path: "os.environ", Prefix: true, Label: "os.environ"},
	{Path: "os.getenv", Label: "os.getenv"},
	// Socket reads.
	{Path: "socket.recv", Label: "socket.recv"},
}

// -- Sinks --

var sinks = []SinkDef{
	// Command injection.
	{Path: "os.system", Label: "os.system", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "os.popen", Label: "os.popen", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "os.execv", Label: "os.execv", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "os.execvp", Label: "os.execvp", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "os.spawnv", Label: "os.spawnv", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "subprocess.run", Label: "subprocess.run", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "subprocess.call", Label: "subprocess.call", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "subprocess.check_call", Label: "subprocess.check_call", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "subprocess.check_output", Label: "subprocess.check_output", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	{Path: "subprocess.Popen", Label: "subprocess.Popen", Classes: []schemas.VulnClass{schemas.ClassCMDI}},
	// SQL injection.
	{Path: ".execute", Suffix: true, Label: "cursor.execute", Classes: []schemas.VulnClass{schemas.ClassSQLI}},
	{Path: ".executemany", Suffix: true, Label: "cursor.executemany", Classes: []schemas.VulnClass{schemas.ClassSQLI}},
	{Path: ".executescript", Suffix: true, Label: "cursor.executescript", Classes: []schemas.VulnClass{schemas.ClassSQLI}},
	{Path: "sqlalchemy.text", Label: "sqlalchemy.text", Classes: []schemas.VulnClass{schemas.ClassSQLI}},
	// Cross-site scripting.
	{Path: "flask.render_template_string", Label: "flask.render_template_string", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "render_template_string", Label: "flask.render_template_string", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "flask.make_response", Label: "flask.make_response", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "make_response", Label: "flask.make_response", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "django.http.HttpResponse", Label: "django.http.HttpResponse", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "HttpResponse", Label: "django.http.HttpResponse", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "markupsafe.Markup", Label: "markupsafe.Markup", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	{Path: "Markup", Label: "markupsafe.Markup", Classes: []schemas.VulnClass{schemas.ClassXSS}},
	// Path traversal.
	{Path: "open", Label: "builtins.open", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "os.open", Label: "os.open", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "os.remove", Label: "os.remove", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "os.unlink", Label: "os.unlink", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "os.rename", Label: "os.rename", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "shutil.copy", Label: "shutil.copy", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "shutil.copyfile", Label: "shutil.copyfile", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "shutil.rmtree", Label: "shutil.rmtree", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "flask.send_file", Label: "flask.send_file", Classes: []schemas.VulnClass{schemas.ClassPath}},
	{Path: "send_file", Label: "flask.send_file", Classes: []schemas.VulnClass{schemas.ClassPath}},
	// Server-side request forgery.
	{Path: "requests.get", Label: "requests.get", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "requests.post", Label: "requests.post", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "requests.put", Label: "requests.put", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "requests.delete", Label: "requests.delete", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "requests.request", Label: "requests.request", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "urllib.request.urlopen", Label: "urllib.request.urlopen", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "flask.redirect", Label: "flask.redirect", Classes: []schemas.VulnClass{schemas.ClassURL}},
	{Path: "redirect", Label: "flask.redirect", Classes: []schemas.VulnClass{schemas.ClassURL}},
	// Code execution and deserialization.
	{Path: "eval", Label: "builtins.eval", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "exec", Label: "builtins.exec", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "compile", Label: "builtins.compile", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "pickle.loads", Label: "pickle.loads", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "pickle.load", Label: "pickle.load", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "yaml.load", Label: "yaml.load", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "marshal.loads", Label: "marshal.loads", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "importlib.import_module", Label: "importlib.import_module", Classes: []schemas.VulnClass{schemas.ClassCode}},
	{Path: "__import__", Label: "builtins.__import__", Classes: []schemas.VulnClass{schemas.ClassCode}},
}

// matchSource returns the source definition matching a qualified path.
func matchSource(path string) (SourceDef, bool) {
	if path == "" {
		return SourceDef{}, false
	}
	for _, s := range sources {
		if path == s.Path {
			return s, true
		}
		if s.Prefix && strings.HasPrefix(path, s.Path+".") {
			return s, true
		}
	}
	return SourceDef{}, false
}

// matchSink returns the sink definition matching a resolved callee.
func matchSink(callee string) (SinkDef, bool) {
	if callee == "" {
		return SinkDef{}, false
	}
	for _, s := range sinks {
		if s.Suffix {
			if strings.HasSuffix(callee, s.Path) && callee != s.Path {
				return s, true
			}
			continue
		}
		if callee == s.Path {
			return s, true
		}
	}
	return SinkDef{}, false
}
