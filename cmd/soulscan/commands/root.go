package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"soul-scanner/internal/config"
	"soul-scanner/pkg/logger"
)

var (
	flagConfig  string
	flagEnvFile string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "soulscan",
	Short:             "Scan a wallet's CARV soul score and ask the AI oracle about it",
	Long:              `soulscan detects an injected wallet, looks up its CARV soul score and asks an OpenAI-backed proxy for a short insight about it.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading the config")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(flagEnvFile); err != nil {
		return err
	}

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	appConfig = cfg
	return nil
}

// loadEnvFile 加载 dotenv 文件，文件不存在时忽略。已有的环境变量不会被覆盖。
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
