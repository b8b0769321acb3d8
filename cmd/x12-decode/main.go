// Package main provides the x12-decode command line tool.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/config"
	"github.com/Rkibbe123/app-datafabric/internal/export"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/postgres"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/redpanda"
	"github.com/Rkibbe123/app-datafabric/internal/observability/errsink"
	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/idempotency"
	"github.com/Rkibbe123/app-datafabric/pkg/workerpool"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "x12-decode",
		Short:         "Decode X12 835 and 837 interchanges",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(topicsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// fileResult is one input file after decoding
type fileResult struct {
	path   string
	result *decode.Result
}

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode interchange files and write one JSON record per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			outPath, _ := cmd.Flags().GetString("out")
			parquetDir, _ := cmd.Flags().GetString("parquet")
			workers, _ := cmd.Flags().GetInt("workers")
			element, _ := cmd.Flags().GetString("element")
			composite, _ := cmd.Flags().GetString("composite")
			terminator, _ := cmd.Flags().GetString("terminator")

			// flags win over the environment
			if element != "" || composite != "" || terminator != "" {
				cfg.X12ElementSeparator, cfg.X12CompositeSeparator, cfg.X12SegmentTerminator = element, composite, terminator
			}
			delims, err := cfg.Delimiters()
			if err != nil {
				return err
			}

			sinkCfg := errsink.DefaultConfig("x12-decode")
			sinkCfg.MaxMessageLength = cfg.ErrorMessageMaxLen
			opts := []decode.Option{
				decode.WithLogger(logger),
				decode.WithErrorSink(errsink.New(sinkCfg, logger)),
			}
			if delims != nil {
				opts = append(opts, decode.WithDelimiters(*delims))
			}
			decoder := decode.NewDecoder(opts...)

			poolCfg := workerpool.DefaultConfig()
			poolCfg.Workers = workers
			poolCfg.QueueSize = len(args)
			pool, err := workerpool.New(poolCfg, func(ctx context.Context, task *workerpool.Task[string]) *workerpool.Result[fileResult] {
				raw, err := os.ReadFile(task.Payload)
				if err != nil {
					return &workerpool.Result[fileResult]{TaskID: task.ID, Error: err}
				}
				res, err := decoder.Decode(ctx, string(raw))
				if err != nil {
					return &workerpool.Result[fileResult]{TaskID: task.ID, Error: err}
				}
				return &workerpool.Result[fileResult]{
					TaskID:  task.ID,
					Success: true,
					Data:    fileResult{path: task.Payload, result: res},
				}
			}, logger)
			if err != nil {
				return err
			}
			pool.Start()
			defer pool.Stop()

			var out io.Writer = os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			bw := bufio.NewWriter(out)
			defer bw.Flush()
			enc := json.NewEncoder(bw)

			var pw *export.Writer
			if parquetDir != "" {
				if pw, err = export.NewWriter(parquetDir); err != nil {
					return err
				}
			}

			results := pool.Map(cmd.Context(), args, func(_ int, path string) string { return path })

			failed, records, structural := 0, 0, 0
			for i, r := range results {
				if !r.Success {
					failed++
					logger.Error("decode failed", zap.String("file", args[i]), zap.Error(r.Error))
					continue
				}
				res := r.Data.result
				structural += len(res.StructuralErrors)
				for _, rec := range res.Records {
					if err := enc.Encode(rec); err != nil {
						return fmt.Errorf("write %s: %w", outPath, err)
					}
					if pw != nil {
						if err := pw.WriteRecord(rec); err != nil {
							return err
						}
					}
					records++
				}
				for _, s := range res.Skipped {
					logger.Warn("transaction set skipped",
						zap.String("file", r.Data.path),
						zap.String("transaction_code", s.Code),
						zap.String("control_number", s.ControlNumber))
				}
			}

			if pw != nil {
				if err := pw.Close(); err != nil {
					return err
				}
				claims, lines, adjustments := pw.Counts()
				logger.Info("parquet written",
					zap.String("dir", parquetDir),
					zap.Int("claims", claims),
					zap.Int("claim_lines", lines),
					zap.Int("provider_adjustments", adjustments))
			}

			logger.Info("decode complete",
				zap.Int("files", len(args)),
				zap.Int("failed", failed),
				zap.Int("records", records),
				zap.Int("structural_errors", structural))
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be decoded", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "-", "JSON Lines output file, - for stdout")
	cmd.Flags().String("parquet", "", "Also write 835 claims as Parquet tables into this directory")
	cmd.Flags().IntP("workers", "w", 4, "Files decoded concurrently")
	cmd.Flags().String("element", "", "Element separator, overrides ISA detection")
	cmd.Flags().String("composite", "", "Composite separator, overrides ISA detection")
	cmd.Flags().String("terminator", "", "Segment terminator, overrides ISA detection")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the record, outbox and inbox tables in DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Require("DATABASE_URL"); err != nil {
				return err
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			if err := idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), logger).Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Create the Redpanda topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Require("KAFKA_BROKERS"); err != nil {
				return err
			}

			admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
			if err != nil {
				return err
			}
			defer admin.Close()

			if err := admin.EnsureTopics(cmd.Context()); err != nil {
				return err
			}

			if group, _ := cmd.Flags().GetString("lag"); group != "" {
				lag, err := admin.ConsumerGroupLag(cmd.Context(), group)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(lag)
			}
			return nil
		},
	}
	cmd.Flags().String("lag", "", "Print the lag of this consumer group after creating topics")
	return cmd
}
