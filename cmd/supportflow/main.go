// Command supportflow runs the AI-assisted customer support automation
// service: a ticket API backed by a five-stage agent pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"supportflow/internal/config"
	"supportflow/internal/kb"
	"supportflow/internal/llm"
	"supportflow/internal/orders"
	"supportflow/internal/pipeline"
	"supportflow/internal/server"
	"supportflow/internal/store"
)

var (
	cfgPath string
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "supportflow",
	Short: "SupportFlow - AI-native customer support automation",
	Long: `SupportFlow routes incoming support tickets through a fixed sequence of
specialized agent stages (triage, research, policy, response, escalation)
and produces a drafted reply plus a human-escalation verdict, with a full
per-stage execution trace.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the SupportFlow HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(cfg.Storage.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		knowledge := kb.New(logger)
		if _, err := knowledge.LoadDir(cfg.KnowledgeBase.DocsDir); err != nil {
			logger.Warn("knowledge base not loaded", zap.Error(err))
		}

		runner, err := buildRunner(ctx, cfg, knowledge)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.New(st, runner, cfg.Server.CORSOrigins, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if cfg.KnowledgeBase.Watch {
			g.Go(func() error {
				err := knowledge.Watch(gctx, cfg.KnowledgeBase.DocsDir)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}

		return g.Wait()
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the agent pipeline once for a ticket given on the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		subject, _ := cmd.Flags().GetString("subject")
		message, _ := cmd.Flags().GetString("message")
		orderID, _ := cmd.Flags().GetString("order")

		knowledge := kb.New(logger)
		if _, err := knowledge.LoadDir(cfg.KnowledgeBase.DocsDir); err != nil {
			logger.Warn("knowledge base not loaded", zap.Error(err))
		}

		runner, err := buildRunner(cmd.Context(), cfg, knowledge)
		if err != nil {
			return err
		}

		result, err := runner.Run(cmd.Context(), pipeline.TicketInput{
			CustomerEmail: email,
			CustomerName:  name,
			Subject:       subject,
			Message:       message,
			OrderID:       orderID,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge base utilities",
}

var kbLoadCmd = &cobra.Command{
	Use:   "load [dir]",
	Short: "Load and index a knowledge base directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		dir := cfg.KnowledgeBase.DocsDir
		if len(args) > 0 {
			dir = args[0]
		}

		knowledge := kb.New(logger)
		n, err := knowledge.LoadDir(dir)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d chunks from %s\n", n, dir)
		return nil
	},
}

func buildRunner(ctx context.Context, cfg config.Config, knowledge *kb.KnowledgeBase) (*pipeline.Runner, error) {
	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(gen, knowledge, orders.NewBook(),
		pipeline.WithConfidenceThreshold(cfg.Pipeline.ConfidenceThreshold),
		pipeline.WithLogger(logger),
	), nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "supportflow.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	processCmd.Flags().String("email", "", "customer email")
	processCmd.Flags().String("name", "", "customer name")
	processCmd.Flags().String("subject", "", "ticket subject")
	processCmd.Flags().String("message", "", "ticket message")
	processCmd.Flags().String("order", "", "optional order id")
	_ = processCmd.MarkFlagRequired("email")
	_ = processCmd.MarkFlagRequired("name")
	_ = processCmd.MarkFlagRequired("subject")
	_ = processCmd.MarkFlagRequired("message")

	kbCmd.AddCommand(kbLoadCmd)
	rootCmd.AddCommand(serveCmd, processCmd, kbCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
