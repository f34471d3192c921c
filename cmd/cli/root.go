package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/personal-finance-assistant/backend/internal/config"
	"github.com/personal-finance-assistant/backend/internal/logger"
	"github.com/personal-finance-assistant/backend/internal/service/agent"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
	"github.com/personal-finance-assistant/backend/internal/store"
)

var (
	envFile string
	cfg     *config.Config
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "finance",
	Short: "Personal finance assistant",
	Long:  `Track expenses and incomes and ask questions about them in plain language.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env") {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logger.Setup(level)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")

	rootCmd.AddCommand(chatCmd, askCmd, migrateCmd, balanceCmd, historyCmd)
}

// openLedger connects to the configured database, migrating it when enabled.
func openLedger(ctx context.Context) (*store.LedgerStore, error) {
	ledgerStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := ledgerStore.Migrate(ctx); err != nil {
			ledgerStore.Close()
			return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
		}
	}
	return ledgerStore, nil
}

// newAssistant wires store, tools and the configured chat model together.
func newAssistant(ctx context.Context, ledgerStore *store.LedgerStore) (*agent.Agent, error) {
	if !cfg.AI.Enabled() {
		return nil, fmt.Errorf("%s credentials not configured: set GROQ_API_KEY or OPENAI_API_KEY", cfg.AI.Provider)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return terminalAgent(chatModel, ledgerStore, cfg.Agent.MaxRounds, log)
}

// terminalAgent always synthesizes: a person at the terminal expects the model's
// answer, not raw tool output, whatever AGENT_REPLY_MODE says for the HTTP server.
func terminalAgent(chatModel model.ToolCallingChatModel, ledgerStore tools.Store, maxRounds int, logger *slog.Logger) (*agent.Agent, error) {
	return agent.New(chatModel, tools.NewExecutor(ledgerStore, logger), agent.Options{
		ReplyMode: agent.ReplySynthesize,
		MaxRounds: maxRounds,
		Logger:    logger,
	})
}
