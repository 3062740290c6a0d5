package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"soul-scanner/internal/config"
	"soul-scanner/internal/events"
	"soul-scanner/internal/insight"
	"soul-scanner/internal/scan"
	"soul-scanner/internal/score"
	"soul-scanner/internal/wallet"
	"soul-scanner/pkg/logger"
)

var (
	flagWallets    string
	flagCarvUID    string
	flagScoreURL   string
	flagInsightURL string
	flagSeed       uint64
	flagJSON       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Connect to a simulated wallet and scan its soul",
	Long: `scan reads the injected wallets from a YAML snapshot, connects to the one
with the highest priority, fetches the soul score and asks the insight proxy
for a reading.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&flagWallets, "wallets", "w", "", "YAML snapshot of injected wallets (default: wallet.snapshot from config)")
	scanCmd.Flags().StringVar(&flagCarvUID, "carv-uid", "", "CARV UID sent with the insight request")
	scanCmd.Flags().StringVar(&flagScoreURL, "score-url", "", "Score service base URL (overrides config)")
	scanCmd.Flags().StringVar(&flagInsightURL, "insight-url", "", "Insight proxy endpoint (overrides config)")
	scanCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "Seed for the fallback score (0: random)")
	scanCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the scan result as JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	cfg := appConfig
	snapshotPath := cfg.Wallet.Snapshot
	if flagWallets != "" {
		snapshotPath = flagWallets
	}
	env, err := wallet.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}

	scoreCfg := cfg.Score
	if flagScoreURL != "" {
		scoreCfg.BaseURL = flagScoreURL
	}
	scores, closeScores := newScoreService(ctx, scoreCfg)
	defer closeScores()

	insightCfg := cfg.Insight
	if flagInsightURL != "" {
		insightCfg.Endpoint = flagInsightURL
	}
	insights := insight.NewClient(insight.Config{Endpoint: insightCfg.Endpoint, Timeout: insightCfg.Timeout()})

	opts := []scan.Option{}
	if flagSeed != 0 {
		opts = append(opts, scan.WithRandom(rand.New(rand.NewPCG(flagSeed, flagSeed))))
	}
	publisher, err := newPublisher(ctx, cfg.Events)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		opts = append(opts, scan.WithPublisher(publisher))
	}

	ui := newTerminalUI(cmd.OutOrStdout(), flagJSON)
	pipeline := scan.New(ui, scores, insights, opts...)

	if _, err := pipeline.Connect(ctx, env); err != nil {
		return err
	}
	if _, err := pipeline.Scan(ctx, flagCarvUID); err != nil {
		return err
	}
	return nil
}

// newScoreService 构造 CARV 客户端，配置了 Redis 时叠加缓存。缓存不可用时只记录告警。
func newScoreService(ctx context.Context, cfg config.ScoreConfig) (score.Service, func()) {
	var svc score.Service = score.NewCARVClient(score.CARVConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout()})
	if cfg.Cache.Address == "" {
		return svc, func() {}
	}
	cache, err := score.NewRedisCache(ctx, score.RedisCacheConfig{
		Address:  cfg.Cache.Address,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Key,
		TTL:      cfg.Cache.TTL(),
	})
	if err != nil {
		logger.L().Warn("score cache disabled", slog.Any("error", err))
		return svc, func() {}
	}
	return score.NewCachedService(svc, cache), func() { _ = cache.Close() }
}

// newPublisher 根据 events.driver 创建扫描事件发布器，多个驱动以逗号分隔，未配置时返回 nil。
func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	var publishers []events.Publisher
	for _, driver := range strings.Split(cfg.Driver, ",") {
		pub, err := newDriverPublisher(ctx, strings.TrimSpace(driver), cfg)
		if err != nil {
			_ = events.NewFanout(publishers...).Close()
			return nil, err
		}
		if pub != nil {
			publishers = append(publishers, pub)
		}
	}
	switch len(publishers) {
	case 0:
		return nil, nil
	case 1:
		return publishers[0], nil
	default:
		return events.NewFanout(publishers...), nil
	}
}

func newDriverPublisher(ctx context.Context, driver string, cfg config.EventsConfig) (events.Publisher, error) {
	switch driver {
	case "", "none":
		return nil, nil
	case "redis":
		pub, err := events.NewRedisPublisher(ctx, events.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "rabbitmq":
		pub, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{
			URL:     cfg.RabbitMQ.URL,
			Queue:   cfg.RabbitMQ.Queue,
			Durable: cfg.RabbitMQ.Durable,
		})
		if err != nil {
			return nil, err
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown events driver: %s", driver)
	}
}
