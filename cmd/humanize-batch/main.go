package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/raaihank/llm-humanizer/internal/batch"
	"github.com/raaihank/llm-humanizer/internal/bootstrap"
	"github.com/raaihank/llm-humanizer/internal/config"
	"github.com/raaihank/llm-humanizer/internal/rules"
	"github.com/raaihank/llm-humanizer/internal/scorer"
)

// cli holds state shared by every subcommand
type cli struct {
	configPath string
	verbose    bool

	config *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "humanize-batch",
		Short: "Humanize dataset files and inspect texts offline",
		Long: `humanize-batch runs the humanizer pipeline over CSV, JSON lines or
Parquet files without starting the HTTP service.

Input CSV files need a header with a text column; an id column is optional.
JSON lines and Parquet rows carry "id" and "text" fields.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(c.runCmd(), c.analyzeCmd(), c.rulesCmd())
	return root
}

// init loads the configuration and builds a stderr logger so stdout stays clean
func (c *cli) init() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.config = cfg

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.verbose {
		level = zapcore.DebugLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	c.logger, err = zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func (c *cli) runCmd() *cobra.Command {
	var (
		input        string
		output       string
		inputFormat  string
		outputFormat string
		mode         string
		batchSize    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Humanize every text in a dataset file",
		Example: `  humanize-batch run -i essays.csv -o essays.jsonl --mode fast
  humanize-batch run -i rows.parquet -o rows.out.parquet --batch-size 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := batch.DefaultConfig()
			settings.Mode = c.config.Humanizer.DefaultMode
			settings.MaxTextLength = c.config.Humanizer.MaxTextLength
			if mode != "" {
				settings.Mode = mode
			}
			if batchSize > 0 {
				settings.BatchSize = batchSize
			}

			inFmt, err := resolveFormat(inputFormat, input)
			if err != nil {
				return err
			}
			outFmt, err := resolveFormat(outputFormat, output)
			if err != nil {
				return err
			}

			comps, err := bootstrap.Build(cmd.Context(), c.config, c.logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			pipeline, err := batch.NewPipeline(comps.Humanizer, settings, c.logger.With(zap.String("component", "batch")))
			if err != nil {
				return err
			}

			result, err := pipeline.ProcessFileAs(cmd.Context(), input, inFmt, output, outFmt)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input dataset file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Input format: csv, jsonl or parquet (default from extension)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "Output format: csv, jsonl or parquet (default from extension)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Processing mode: fast, balanced or aggressive (default from config)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Texts per humanizer batch")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Score a text without modifying it",
		Long: `Prints the detection estimate and indicators for a text given as
arguments, read from --file, or piped on stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				text = string(data)
			case text == "":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}

			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("no text to analyze")
			}
			return writeJSON(cmd.OutOrStdout(), scorer.New(c.config.Scorer).Analyze(text))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the text from a file")
	return cmd
}

func (c *cli) rulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule tables",
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in rule tables as YAML",
		Long: `Writes the built-in rule tables in the format accepted by
humanizer.rules_file, as a starting point for custom tables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rules.Export()
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			c.logger.Info("Rule tables exported", zap.String("path", output))
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	rulesCmd.AddCommand(exportCmd)
	return rulesCmd
}

// resolveFormat prefers an explicit format name over the file extension
func resolveFormat(name, path string) (batch.FileFormat, error) {
	if name == "" {
		return batch.DetectFileFormat(path), nil
	}
	format, ok := batch.ParseFileFormat(name)
	if !ok {
		return "", fmt.Errorf("unsupported format %q", name)
	}
	return format, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
