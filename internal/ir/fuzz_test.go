//go:build go1.18
// +build go1.18

package ir

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func FuzzBuild(f *testing.F) {
	f.Add([]byte("x = input()\nprint(x)\n"))
	f.Add([]byte("def f(a):\n    if a:\n        return a\n    return 0\n"))
	f.Add([]byte("class C:\n    def m(self):\n        for i in range(3):\n            yield i\n"))
	f.Add([]byte("import os\nos.system(\"ls\")\n"))
	f.Add([]byte(""))
	f.Add([]byte("\x00\x01\xff"))
	f.Fuzz(func(t *testing.T, src []byte) {
		b := NewBuilder(zaptest.NewLogger(t), 64)

		// Must never panic, and identical input must yield identical ids.
		first, err := b.Build(context.Background(), "fuzz.py", src)
		if err != nil {
			return
		}
		second, err := b.Build(context.Background(), "fuzz.py", src)
		if err != nil {
			t.Fatalf("second build failed where first succeeded: %v", err)
		}
		if len(first.Graph.Nodes) != len(second.Graph.Nodes) {
			t.Fatalf("node count differs between runs: %d vs %d",
				len(first.Graph.Nodes), len(second.Graph.Nodes))
		}
		for i := range first.Graph.Nodes {
			if first.Graph.Nodes[i].ID != second.Graph.Nodes[i].ID {
				t.Fatalf("node id %d differs between runs: %q vs %q",
					i, first.Graph.Nodes[i].ID, second.Graph.Nodes[i].ID)
			}
		}
		if first.Root != second.Root {
			t.Fatalf("module root id differs between runs: %q vs %q", first.Root, second.Root)
		}
	})
}
