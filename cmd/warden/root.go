package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"warden/internal/config"
	"warden/internal/conversation"
	"warden/internal/event"
	"warden/internal/guardrails"
	"warden/internal/llm"
	"warden/internal/logging"
	"warden/internal/observability"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "warden",
		Short:         "Safety gateway and conversation context reducer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to warden.yaml")

	root.AddCommand(newCheckCmd(&configPath))
	root.AddCommand(newContextCmd(&configPath))
	root.AddCommand(newCategoriesCmd(&configPath))
	return root
}

// newCategoriesCmd prints the effective risk catalog in the catalog file
// format, so operators can dump the defaults and edit from there.
func newCategoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the effective risk catalog as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadDeps(*configPath)
			if err != nil {
				return err
			}
			data, err := guardrails.MarshalCatalog(cfg.Guardrails.Categories)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func loadDeps(configPath string) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, logger, nil
}

// newCheckCmd scores a prompt against the configured risk categories and
// prints the decision.
func newCheckCmd(configPath *string) *cobra.Command {
	var structured bool

	cmd := &cobra.Command{
		Use:   "check <prompt>",
		Short: "Run the guardrail check against a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDeps(*configPath)
			if err != nil {
				return err
			}

			metrics, err := observability.NewMetricsCollector(cfg.Metrics)
			if err != nil {
				return err
			}
			tracing, err := observability.NewTracerProvider(cfg.Tracing)
			if err != nil {
				return err
			}
			defer func() { _ = tracing.Shutdown(cmd.Context()) }()

			client, err := llm.NewOpenAIClient(cfg.Guardrails.Model, llm.Config{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Timeout: cfg.Guardrails.TimeoutSecs,
			})
			if err != nil {
				return err
			}

			engine := guardrails.NewEngine(client, cfg.Guardrails.Categories,
				guardrails.WithCallTimeout(time.Duration(cfg.Guardrails.TimeoutSecs)*time.Second),
				guardrails.WithTopLogProbs(cfg.Guardrails.TopLogProbs),
				guardrails.WithStructuredOutput(structured || cfg.Guardrails.Structured),
				guardrails.WithEngineLogger(logger),
				guardrails.WithEngineMetrics(metrics),
			)
			guard := guardrails.NewOrchestrator(engine,
				guardrails.WithEnabled(cfg.Guardrails.Enabled),
				guardrails.WithDecisionCache(cfg.Guardrails.CacheSize),
				guardrails.WithLogger(logger),
				guardrails.WithMetrics(metrics),
				guardrails.WithTracer(tracing.Tracer()),
			)

			prompt := strings.Join(args, " ")
			ctx, span := tracing.StartSpan(cmd.Context(), "cli.check",
				attribute.String("llm.model", cfg.Guardrails.Model))
			decision := guard.Check(ctx, prompt)
			span.End()
			printDecision(decision)

			if decision.Blocked() {
				message, _ := guardrails.UserMessage(decision)
				fmt.Println(gray(message))
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&structured, "structured", false,
		"request JSON verdicts instead of logprob-scored labels")
	return cmd
}

func printDecision(d guardrails.Decision) {
	switch d.Outcome {
	case guardrails.OutcomeSafe:
		fmt.Printf("%s %s\n", green("SAFE"), gray(d.Reasoning))
	case guardrails.OutcomeUnsafe:
		fmt.Printf("%s %s\n", red("UNSAFE"), bold(d.Reasoning))
	case guardrails.OutcomeUnavailable:
		fmt.Printf("%s %s\n", yellow("UNAVAILABLE"), d.Reasoning)
	}
}

// eventFile is the JSON shape accepted by the context subcommand.
type eventFile struct {
	Events []struct {
		Author string `json:"author"`
		Text   string `json:"text"`
		TaskID string `json:"task_id,omitempty"`
	} `json:"events"`
}

// newContextCmd replays an event log from a JSON file and prints the reduced
// context that would be handed to the downstream responder.
func newContextCmd(configPath *string) *cobra.Command {
	var eventsPath string

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Consolidate an event log into a bounded context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDeps(*configPath)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(eventsPath)
			if err != nil {
				return err
			}
			var file eventFile
			if err := json.Unmarshal(raw, &file); err != nil {
				return fmt.Errorf("decode events file: %w", err)
			}

			events := make([]event.Event, 0, len(file.Events))
			for _, e := range file.Events {
				ev := event.Event{
					Author:    e.Author,
					Timestamp: time.Now(),
					Parts:     []event.Part{event.TextPart{Text: e.Text}},
				}
				if e.TaskID != "" {
					ev.Metadata = map[string]any{event.MetaTaskID: e.TaskID}
				}
				events = append(events, ev)
			}

			// No collaborator configured here: the summarizer always takes
			// the verbatim path, which is what a dry run should show.
			summarizer := conversation.NewSummarizer(nil,
				conversation.WithMinChars(cfg.Summarizer.MinChars),
				conversation.WithSummarizerLogger(logger),
			)
			consolidator := conversation.NewConsolidator(cfg.AgentName, logger)

			messages, contextID := consolidator.Consolidate(conversation.MergeTaskEvents(events))
			block := summarizer.Summarize(cmd.Context(), messages)

			if contextID != "" {
				fmt.Printf("%s %s\n", bold("context id:"), contextID)
			}
			if block.Summary != "" {
				fmt.Printf("%s\n%s\n\n", bold("context:"), gray(block.Summary))
			}
			fmt.Printf("%s %s\n", bold("current turn:"), block.CurrentTurn)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventsPath, "events", "events.json", "path to an events JSON file")
	_ = cmd.MarkFlagFilename("events", "json")
	return cmd
}
