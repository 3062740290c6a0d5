package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"soul-scanner/internal/api"
	"soul-scanner/internal/config"
	"soul-scanner/internal/llm"
	"soul-scanner/internal/llm/openai"
	"soul-scanner/pkg/logger"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the insight proxy (POST /api/ask)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config and SOULSCAN_ADDR/PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	addr := cfg.Server.Address
	if flagAddr != "" {
		addr = flagAddr
	}

	server := newProxyServer(addr, cfg)
	defer logger.Sync()

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newProxyServer(addr string, cfg *config.Config) *api.Server {
	return api.NewServer(addr, createLLMClient(cfg),
		api.WithCompletion(cfg.LLM.OpenAI.MaxTokens, cfg.LLM.OpenAI.Temperature),
		api.WithReadHeaderTimeout(time.Duration(cfg.Server.ReadHeaderTimeoutSeconds)*time.Second),
	)
}

// createLLMClient 在未配置密钥时返回 nil，代理仍会启动，但 /api/ask 会报告缺少密钥。
func createLLMClient(cfg *config.Config) llm.Client {
	apiKey := cfg.LLM.OpenAI.ResolveAPIKey()
	if apiKey == "" {
		logger.L().Warn("OpenAI API key not configured", slog.String("env", cfg.LLM.OpenAI.APIKeyEnv))
		return nil
	}
	client, err := openai.NewClient(openai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.LLM.OpenAI.BaseURL,
		Model:   cfg.LLM.OpenAI.Model,
		Timeout: cfg.LLM.OpenAI.Timeout(),
	})
	if err != nil {
		logger.L().Error("create OpenAI client", slog.Any("error", err))
		return nil
	}
	return client
}
