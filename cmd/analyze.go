// -- cmd/analyze.go --
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet/internal/config"
	"github.com/xkilldash9x/lancet/internal/observability"
	"github.com/xkilldash9x/lancet/internal/pipeline"
	"github.com/xkilldash9x/lancet/internal/reporting"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		output        string
		format        string
		maxCandidates int
		maxPathLength int
		maxCallDepth  int
		literalCap    int
		concurrency   int
		deadline      time.Duration
		incremental   bool
		manifestPath  string
		sanitizerTab  string
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyzes Python source trees for tainted data flows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg, flagValues{
				maxCandidates: maxCandidates,
				maxPathLength: maxPathLength,
				maxCallDepth:  maxCallDepth,
				literalCap:    literalCap,
				concurrency:   concurrency,
				deadline:      deadline,
				incremental:   incremental,
				manifestPath:  manifestPath,
				sanitizerTab:  sanitizerTab,
			})

			p, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}

			started := time.Now()
			result, err := p.Run(ctx, args)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			logger.Info("Analysis complete",
				zap.String("scan_id", result.ScanID),
				zap.Int("files_analyzed", result.Stats.FilesAnalyzed),
				zap.Int("files_reused", result.Stats.FilesReused),
				zap.Int("files_skipped", result.Stats.FilesSkipped),
				zap.Int("findings", len(result.Findings)),
				zap.Duration("elapsed", time.Since(started)))

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			reporter, err := reporting.NewReporter(format, w, Version)
			if err != nil {
				return err
			}
			return reporter.Write(result)
		},
	}

	flags := analyzeCmd.Flags()
	flags.StringVarP(&output, "output", "o", "-", "output file, or - for stdout")
	flags.StringVarP(&format, "format", "f", "json", "output format (json or sarif)")
	flags.IntVar(&maxCandidates, "max-candidates", 0, "speculative call candidate cap")
	flags.IntVar(&maxPathLength, "max-path-length", 0, "taint path length cap")
	flags.IntVar(&maxCallDepth, "max-call-depth", -1, "inter-procedural call depth cap")
	flags.IntVar(&literalCap, "literal-cap", 0, "retained string literal length")
	flags.IntVar(&concurrency, "concurrency", 0, "parallel file analysis limit")
	flags.DurationVar(&deadline, "deadline", 0, "whole-run deadline (0 disables)")
	flags.BoolVar(&incremental, "incremental", false, "reuse unchanged results from the manifest")
	flags.StringVar(&manifestPath, "manifest", "", "manifest path for incremental runs")
	flags.StringVar(&sanitizerTab, "sanitizers", "", "JSON sanitizer table overriding the built-ins")
	return analyzeCmd
}

type flagValues struct {
	maxCandidates int
	maxPathLength int
	maxCallDepth  int
	literalCap    int
	concurrency   int
	deadline      time.Duration
	incremental   bool
	manifestPath  string
	sanitizerTab  string
}

// applyFlagOverrides layers explicitly-set flags over the file and env
// configuration. Unset flags leave the loaded values alone.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, v flagValues) {
	set := cmd.Flags().Changed
	if set("max-candidates") {
		cfg.Analysis.MaxSpeculativeCandidates = v.maxCandidates
	}
	if set("max-path-length") {
		cfg.Analysis.MaxTaintPathLength = v.maxPathLength
	}
	if set("max-call-depth") {
		cfg.Analysis.MaxCallDepth = v.maxCallDepth
	}
	if set("literal-cap") {
		cfg.Analysis.LiteralCap = v.literalCap
	}
	if set("concurrency") {
		cfg.Pipeline.Concurrency = v.concurrency
	}
	if set("deadline") {
		cfg.Pipeline.Deadline = v.deadline
	}
	if set("incremental") {
		cfg.Pipeline.Incremental = v.incremental
	}
	if set("manifest") {
		cfg.Pipeline.ManifestPath = v.manifestPath
	}
	if set("sanitizers") {
		cfg.Registry.SanitizerTable = v.sanitizerTab
	}
}

func init() {
	rootCmd.AddCommand(newAnalyzeCmd())
}
