package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/config"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/logging"
	"github.com/danielpatrickdp/agri-rag/go-controller/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errMismatch makes the process exit non-zero without printing a usage block.
var errMismatch = errors.New("replay: decisions did not match fixture expectations")

// #region main

type options struct {
	configPath string
	jsonOut    bool
	verbose    bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(w io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "replay <fixture>...",
		Short:         "Replay fixture questions through the arbiter with canned index and model replies",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runFixtures(ctx, w, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config supplying base policies (defaults when empty)")
	f.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging of every pipeline stage")
	return cmd
}

// #endregion main

// #region fixture-mode

type caseOutput struct {
	Fixture    string   `json:"fixture"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Confidence float64  `json:"confidence"`
	Passed     bool     `json:"passed"`
	Mismatches []string `json:"mismatches,omitempty"`
}

func runFixtures(ctx context.Context, w io.Writer, opts *options, paths []string) error {
	opt := replay.DefaultOptions()
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		opt.Retrieval = cfg.Retrieval
		opt.Answer = cfg.Answer
		opt.Arbiter = cfg.ArbiterConfig()
		opt.Categories = cfg.Categories
	}
	if opts.verbose {
		logger, err := logging.NewLogger(true)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()
		opt.Logger = logger
	} else {
		opt.Logger = zap.NewNop()
	}

	var all []replay.Result
	var rows []caseOutput
	for _, path := range paths {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		results := replay.Run(ctx, f, opt)
		all = append(all, results...)
		for _, r := range results {
			rows = append(rows, caseOutput{
				Fixture:    path,
				Name:       r.Name,
				Status:     string(r.Decision.Status),
				Reason:     r.Decision.Reason,
				Confidence: r.Decision.Confidence,
				Passed:     r.Passed(),
				Mismatches: r.Mismatches,
			})
		}
	}

	summary := replay.Summarize(all)
	if opts.jsonOut {
		if err := printJSON(w, map[string]any{"cases": rows, "summary": summary}); err != nil {
			return err
		}
	} else {
		printTable(w, rows, summary)
	}

	if summary.Failed > 0 {
		return errMismatch
	}
	return nil
}

func printTable(w io.Writer, rows []caseOutput, s replay.Summary) {
	fmt.Fprintf(w, "%-28s  %-9s  %-28s  %6s  %s\n", "Case", "Status", "Reason", "Conf", "Result")
	fmt.Fprintf(w, "%-28s+-%-9s+-%-28s+-%6s+-%s\n",
		"----------------------------", "---------", "----------------------------", "------", "------")
	for _, r := range rows {
		result := "ok"
		if !r.Passed {
			result = "MISMATCH"
		}
		fmt.Fprintf(w, "%-28s  %-9s  %-28s  %6.3f  %s\n", r.Name, r.Status, r.Reason, r.Confidence, result)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "    %s\n", m)
		}
	}

	fmt.Fprintf(w, "\n=== Summary ===\n")
	fmt.Fprintf(w, "Total: %d  Passed: %d  Failed: %d\n", s.Total, s.Passed, s.Failed)
	keys := make([]string, 0, len(s.ByReason))
	for k := range s.ByReason {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-28s %d\n", k, s.ByReason[k])
	}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// #endregion fixture-mode
