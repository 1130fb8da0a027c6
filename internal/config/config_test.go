// Filename: config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestValidateRejectsBadCaps(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero speculative candidates", func(c *Config) { c.Analysis.MaxSpeculativeCandidates = 0 }},
		{"zero path length", func(c *Config) { c.Analysis.MaxTaintPathLength = 0 }},
		{"negative call depth", func(c *Config) { c.Analysis.MaxCallDepth = -1 }},
		{"tiny literal cap", func(c *Config) { c.Analysis.LiteralCap = 8 }},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Defaults()
			tc.mutate(conf)
			require.Error(t, conf.Validate())
		})
	}
}

func TestZeroCallDepthIsAllowed(t *testing.T) {
	conf := Defaults()
	conf.Analysis.MaxCallDepth = 0
	require.NoError(t, conf.Validate())
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lancet.yaml")
	body := `
analysis:
  max_speculative_candidates: 3
  literal_cap: 64
pipeline:
  concurrency: 7
  incremental: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	conf, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, conf.Analysis.MaxSpeculativeCandidates)
	require.Equal(t, 64, conf.Analysis.LiteralCap)
	require.Equal(t, 7, conf.Pipeline.Concurrency)
	require.True(t, conf.Pipeline.Incremental)
	// Unset keys keep their defaults.
	require.Equal(t, Defaults().Analysis.MaxTaintPathLength, conf.Analysis.MaxTaintPathLength)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
