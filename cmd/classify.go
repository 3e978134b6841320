package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/logging"
)

// smokeQueries are routed when classify is called without arguments.
var smokeQueries = []string{
	"Create a task to review the budget",
	"Task to delete without approval",
	"Schedule a meeting tomorrow at 2pm",
	"I need a new task for the project",
}

// Context used for the smoke queries.
const (
	smokeTimezone = "America/New_York"
	smokeDate     = "2025-07-29"
	smokeTime     = "11:00:00"
)

// errRoutingViolation is returned when a query was routed against the rules.
var errRoutingViolation = errors.New("routing violations found")

type classifyOptions struct {
	jsonOutput  bool
	timezone    string
	currentDate string
	currentTime string
	note        string
	router      routerFlags
}

// classifyOutcome is one line of classify output.
type classifyOutcome struct {
	Query     string         `json:"query"`
	Result    *intent.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Violation string         `json:"violation,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	var opts classifyOptions

	cmd := &cobra.Command{
		Use:   "classify [query...]",
		Short: "Route queries from the command line",
		Long: `Route one query per argument and print the chosen provider, intent
type and reasoning.

Without arguments the built-in smoke queries are routed in the
America/New_York timezone on 2025-07-29 at 11:00:00.

The command exits non-zero when a query mentioning "task" is not routed to
the task provider, or a query mentioning "meeting" is not routed to the
calendar provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA timezone of the user (default: UTC, or America/New_York for the smoke queries)")
	cmd.Flags().StringVar(&opts.currentDate, "date", "", "Current date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.currentTime, "time", "", "Current time, HH:MM:SS (default: now)")
	cmd.Flags().StringVar(&opts.note, "context", "", "Additional context passed to the classifier")
	opts.router.register(cmd)

	return cmd
}

func runClassify(cmd *cobra.Command, args []string, opts classifyOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	queries := args
	if len(queries) == 0 {
		queries = smokeQueries
		if opts.timezone == "" && opts.currentDate == "" && opts.currentTime == "" {
			opts.timezone, opts.currentDate, opts.currentTime = smokeTimezone, smokeDate, smokeTime
		}
	}

	c, err := intent.ResolveContext(opts.timezone, opts.currentDate, opts.currentTime, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, &opts.router)
	if err != nil {
		return err
	}
	router, err := newRouter(ctx, cfg, logging.New(debugMode))
	if err != nil {
		return err
	}

	outcomes := classifyAll(ctx, router, queries, c, opts.note)

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		if err := writeOutcomesJSON(out, outcomes); err != nil {
			return err
		}
	} else {
		writeOutcomesText(out, outcomes)
	}

	violations := 0
	for _, o := range outcomes {
		if o.Violation != "" || o.Error != "" {
			violations++
		}
	}
	if violations > 0 {
		return fmt.Errorf("%w: %d of %d queries", errRoutingViolation, violations, len(outcomes))
	}
	return nil
}

func classifyAll(ctx context.Context, router *intent.Router, queries []string, c intent.Context, note string) []classifyOutcome {
	cfg := router.Config()
	outcomes := make([]classifyOutcome, 0, len(queries))
	for _, q := range queries {
		o := classifyOutcome{Query: q}
		res, err := router.ClassifyRequest(ctx, intent.Request{Query: q, Context: c, Note: note})
		if err != nil {
			o.Error = err.Error()
		} else {
			o.Result = &res
			o.Violation = routingViolation(cfg, q, res)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// routingViolation checks the two invariants of the smoke run: "task"
// always goes to the task provider and "meeting" to the calendar provider.
func routingViolation(cfg intent.Config, query string, res intent.Result) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "task") && res.Provider != cfg.TaskProvider:
		return fmt.Sprintf("task query was not routed to %s", cfg.TaskProvider)
	case !strings.Contains(q, "task") && strings.Contains(q, "meeting") && res.Provider != cfg.CalendarProvider:
		return fmt.Sprintf("meeting query was not routed to %s", cfg.CalendarProvider)
	}
	return ""
}

func writeOutcomesJSON(w io.Writer, outcomes []classifyOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func writeOutcomesText(w io.Writer, outcomes []classifyOutcome) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Query: %s\n", o.Query)
		if o.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", o.Error)
			continue
		}
		fmt.Fprintf(w, "Provider: %s\n", o.Result.Provider)
		fmt.Fprintf(w, "Intent Type: %s\n", o.Result.IntentType)
		fmt.Fprintf(w, "Reasoning: %s\n", o.Result.Reasoning)
		if o.Result.ApprovalRequired {
			fmt.Fprintf(w, "Approval required: %s\n", o.Result.Warning)
		}
		if o.Violation != "" {
			fmt.Fprintf(w, "❌ ERROR: %s\n", o.Violation)
		} else {
			fmt.Fprintln(w, "✓ Correctly classified")
		}
	}
}
