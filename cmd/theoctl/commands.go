package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/theo-assistant/internal/bootstrap"
	"github.com/kirillkom/theo-assistant/internal/catalog"
	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/theo-assistant/internal/observability/logging"
)

const serviceName = "theoctl"

type rootOptions struct {
	envFile  string
	logLevel string
	timeout  time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "theoctl",
		Short:         "Process medical reports and inspect the benefit catalog locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.envFile != "" {
				if err := config.LoadDotEnv(opts.envFile); err != nil {
					return err
				}
			}
			logging.Install(logging.New(cmd.ErrOrStderr(), serviceName, opts.logLevel, "text"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load when present")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "overall deadline; zero uses PIPELINE_TIMEOUT_SECONDS")

	root.AddCommand(
		newProcessCommand(opts),
		newExtractCommand(opts),
		newBenefitsCommand(),
		newChecklistCommand(opts),
	)
	return root
}

func newProcessCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file|->",
		Short: "Run the full pipeline on a report and print the aggregate result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readReport(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ctx, app, cleanup, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := app.Processor.ProcessReport(ctx, text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newExtractCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file|->",
		Short: "Extract structured facts from a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readReport(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ctx, app, cleanup, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			facts := app.Stages.Extractor.Extract(ctx, text)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"facts":   facts,
				"summary": app.Stages.Extractor.Summarize(facts),
			})
		},
	}
}

func newBenefitsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "benefits",
		Short: "Print the benefit catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalog(config.Load().CatalogPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"benefits": cat.Entries()})
		},
	}
}

func newChecklistCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "checklist <benefit-id>",
		Short: "Build the application checklist for one benefit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, cleanup, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			benefit, ok := app.Catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown benefit %q", args[0])
			}
			items := app.Stages.Checklists.Build(ctx, benefit)
			if output == "" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"benefit": benefit, "checklist": items})
			}
			data, err := xlsx.ChecklistWorkbook(benefit, items)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write an .xlsx workbook instead of JSON")
	return cmd
}

func startApp(parent context.Context, opts *rootOptions) (context.Context, *bootstrap.App, func(), error) {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()
	app, err := bootstrap.New(parent, cfg, bootstrap.Options{Service: serviceName, Role: bootstrap.RoleLocal})
	if err != nil {
		return nil, nil, nil, err
	}
	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.PipelineTimeout()
	}
	ctx, cancel := parent, context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	}
	return ctx, app, func() {
		cancel()
		app.Close()
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.LoadDefault()
	}
	return catalog.LoadFile(path)
}

// readReport reads a report file, or stdin for "-", and returns its text.
func readReport(stdin io.Reader, path string) (string, error) {
	var (
		body []byte
		err  error
		name = path
	)
	if path == "-" {
		body, err = io.ReadAll(stdin)
		name = "stdin.txt"
	} else {
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return extractor.Extract(filepath.Base(name), "", body)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
