package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/danielpatrickdp/agri-rag/go-controller/internal/store"
	"github.com/spf13/cobra"
)

// #region main

type options struct {
	dbPath  string
	last    int
	id      string
	reasons bool
	jsonOut bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(w io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "inspect",
		Short:        "Show persisted arbiter decisions",
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			s, err := store.NewStore(opts.dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer s.Close()

			switch {
			case opts.id != "":
				return runDetailMode(w, s, opts.id, opts.jsonOut)
			case opts.reasons:
				return runReasonMode(w, s, opts.jsonOut)
			default:
				return runListMode(w, s, opts.last, opts.jsonOut)
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", envOr("AGRI_DB", "agri_decisions.db"), "path to the decision database")
	f.IntVar(&opts.last, "last", 20, "show N most recent decisions")
	f.StringVar(&opts.id, "id", "", "show one decision with its diagnostics")
	f.BoolVar(&opts.reasons, "reasons", false, "count decisions by status and reason")
	f.BoolVar(&opts.jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion main

// #region list-mode

func runListMode(w io.Writer, s *store.Store, last int, jsonOut bool) error {
	recs, err := s.ListDecisions(last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}

	// Store returns newest first; print chronologically.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	if jsonOut {
		for i := range recs {
			recs[i].DiagnosticsJSON = ""
		}
		return printJSON(w, recs)
	}

	fmt.Fprintf(w, "%-10s  %-9s  %-26s  %-10s  %6s  %-5s  %s\n",
		"Decision", "Status", "Reason", "Category", "Conf", "Fallb", "Time")
	fmt.Fprintf(w, "%-10s+-%-9s+-%-26s+-%-10s+-%6s+-%-5s+-%s\n",
		"----------", "---------", "--------------------------", "----------", "------", "-----", "--------------------")
	for _, r := range recs {
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%-10s  %-9s  %-26s  %-10s  %6.3f  %-5t  %s\n",
			shortID(r.DecisionID), r.Status, reason, r.Category, r.Confidence, r.AllowFallback,
			r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	store.DecisionRecord
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
}

func runDetailMode(w io.Writer, s *store.Store, id string, jsonOut bool) error {
	r, err := s.GetDecision(id)
	if err != nil {
		return err
	}

	if jsonOut {
		out := detailOutput{DecisionRecord: r}
		if r.DiagnosticsJSON != "" && json.Valid([]byte(r.DiagnosticsJSON)) {
			out.Diagnostics = json.RawMessage(r.DiagnosticsJSON)
		}
		out.DecisionRecord.DiagnosticsJSON = ""
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Decision:   %s\n", r.DecisionID)
	fmt.Fprintf(w, "Created:    %s\n", r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "Query:      %s\n", r.Query)
	fmt.Fprintf(w, "Normalized: %s\n", r.NormalizedQuery)
	fmt.Fprintf(w, "Category:   %s\n", r.Category)
	fmt.Fprintf(w, "Intent:     %s\n", r.Intent)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Reason:     %s\n", r.Reason)
	fmt.Fprintf(w, "Confidence: %.3f\n", r.Confidence)
	fmt.Fprintf(w, "Fallback:   %v\n", r.AllowFallback)
	fmt.Fprintf(w, "Cached:     %v\n", r.Cached)
	fmt.Fprintf(w, "Latency:    %dms\n", r.LatencyMS)
	if r.Answer != "" {
		fmt.Fprintf(w, "\nAnswer:\n  %s\n", r.Answer)
	}
	if r.DiagnosticsJSON != "" {
		var pretty any
		if err := json.Unmarshal([]byte(r.DiagnosticsJSON), &pretty); err == nil {
			fmt.Fprintf(w, "\nDiagnostics:\n")
			return printJSON(w, pretty)
		}
	}
	return nil
}

// #endregion detail-mode

// #region reason-mode

func runReasonMode(w io.Writer, s *store.Store, jsonOut bool) error {
	counts, err := s.CountByReason()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, counts)
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-40s %d\n", k, counts[k])
	}
	return nil
}

// #endregion reason-mode

// #region output

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
