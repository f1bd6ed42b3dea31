package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// #region flags
type options struct {
	configPath  string
	category    string
	intent      string
	language    string
	jsonOut     bool
	verbose     bool
	metricsAddr string
}

// #endregion flags

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "controller",
		Short: "Grounded agriculture question answering over the indexed documents",
		Long: "Answers agriculture questions only from retrieved document evidence and refuses\n" +
			"when the evidence is weak. Without a subcommand it starts an interactive session.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", envOr("AGRI_CONFIG", "agri.yaml"), "path to YAML config (missing file uses defaults)")
	pf.StringVar(&opts.category, "category", "", "question category (policy, market, advisory, disease, statistics, general)")
	pf.StringVar(&opts.intent, "intent", "", "question intent (numeric, eligibility, procedure, definition)")
	pf.StringVar(&opts.language, "language", "", "reply language code")
	pf.BoolVar(&opts.jsonOut, "json", false, "print decisions as JSON")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")

	root.AddCommand(&cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), opts, strings.Join(args, " "))
		},
	})
	return root
}

// #endregion main

// #region ask
func runAsk(ctx context.Context, opts *options, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.answer(ctx, os.Stdout, opts.query(question))
}

// #endregion ask

// #region repl
func runREPL(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println("Agri RAG controller ready.")
	fmt.Printf("  DB: %s | Index: %s | Category: %s\n", app.cfg.Store.Path, app.cfg.Index.Addr, app.categoryLabel(opts.category))
	fmt.Println("Type a question (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := app.answer(ctx, os.Stdout, opts.query(line)); err != nil {
			app.logger.Error("print decision failed", zap.Error(err))
		}
		fmt.Println()
	}
	return scanner.Err()
}

// #endregion repl

// #region helpers
func (o *options) query(text string) pipeline.Query {
	return pipeline.Query{Text: text, Category: o.category, Intent: o.intent, Language: o.language}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
