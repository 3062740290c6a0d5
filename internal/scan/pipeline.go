// Package scan orchestrates a wallet soul scan: connect to the detected
// wallet, look up the soul score, request an insight and present the result.
package scan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "soul-scanner/internal/errors"
	"soul-scanner/internal/events"
	"soul-scanner/internal/insight"
	"soul-scanner/internal/score"
	"soul-scanner/internal/wallet"
	"soul-scanner/pkg/logger"
)

const (
	// NoWalletMessage 在没有检测到兼容钱包时提示用户。
	NoWalletMessage = "Please install Backpack (Solana) or MetaMask/OKX (EVM)"
	// ConnectFirstMessage 在未连接钱包就发起扫描时提示用户。
	ConnectFirstMessage = "Connect wallet first"
	// LoadingMessage 在等待洞察时展示。
	LoadingMessage = "Channeling CARV AI..."
	// FallbackInsight 在洞察缺失时展示给用户。
	FallbackInsight = "Your soul whispers of building — scan again for a fresher insight."
)

// InsightRequester 请求一段关于分数的洞察文本，失败时返回 false。
type InsightRequester interface {
	Request(ctx context.Context, wallet, carvUID string, soulScore int) (string, bool)
}

// Pipeline 串联钱包连接、分数查询、洞察请求与结果展示。
type Pipeline struct {
	session   *Session
	ui        UI
	scores    score.Service
	insights  InsightRequester
	rng       score.Random
	publisher events.Publisher
	now       func() time.Time
	newID     func() string
	log       *slog.Logger
}

// Option 定义可选的 Pipeline 配置。
type Option func(*Pipeline)

// WithRandom 注入兜底分数使用的随机源。
func WithRandom(rng score.Random) Option {
	return func(p *Pipeline) {
		if rng != nil {
			p.rng = rng
		}
	}
}

// WithPublisher 配置扫描完成事件的发布器。
func WithPublisher(pub events.Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// WithClock 覆盖时间来源，便于测试。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSession 使用调用方持有的会话。
func WithSession(session *Session) Option {
	return func(p *Pipeline) {
		if session != nil {
			p.session = session
		}
	}
}

// New 创建扫描流程。scores 与 insights 均可为 nil，此时分别使用兜底分数与兜底文案。
func New(ui UI, scores score.Service, insights InsightRequester, opts ...Option) *Pipeline {
	if ui == nil {
		ui = nopUI{}
	}
	p := &Pipeline{
		session:  NewSession(),
		ui:       ui,
		scores:   scores,
		insights: insights,
		rng:      score.DefaultRandom,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.Named("scan"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Session 返回流程持有的会话。
func (p *Pipeline) Session() *Session {
	return p.session
}

// Connect 重新检测钱包并请求账户授权。失败时向用户提示并回到 Idle，
// 已有的钱包地址不会被修改。
func (p *Pipeline) Connect(ctx context.Context, env wallet.EnvironmentSnapshot) (string, error) {
	p.transition(StateConnecting)
	handle := wallet.Resolve(env)
	if handle == nil {
		p.transition(StateIdle)
		return "", p.fail(xerrors.New(xerrors.CodeNoProvider, NoWalletMessage))
	}

	address, err := handle.Connect(ctx)
	if err != nil {
		p.transition(StateIdle)
		return "", p.fail(xerrors.Wrap(xerrors.CodeConnectFailed, err, "Wallet connection failed: "+err.Error(),
			xerrors.WithMetadata("provider", string(handle.Kind))))
	}

	p.session.connected(address)
	p.log.Debug("state changed", slog.String("state", string(StateConnected)))
	p.log.Info("wallet connected",
		slog.String("provider", string(handle.Kind)),
		slog.String("chain", string(wallet.ClassifyAddress(address))),
		slog.String("address", address),
	)
	p.ui.ShowWallet(address)
	p.ui.SetScanEnabled(true)
	return address, nil
}

// Scan 对已连接的钱包执行一次扫描。分数与洞察的失败都会被兜底，
// 只要钱包已连接，流程总会到达 Complete。
func (p *Pipeline) Scan(ctx context.Context, carvUID string) (Result, error) {
	address, ok := p.session.Address()
	if !ok {
		return Result{}, p.fail(xerrors.New(xerrors.CodeNotConnected, ConnectFirstMessage))
	}

	carvUID = strings.TrimSpace(carvUID)
	if carvUID == "" {
		carvUID = insight.DefaultCarvUID
	}
	p.ui.ShowCarvUID(carvUID)
	p.ui.ShowLoading(LoadingMessage)

	p.transition(StateScoringInProgress)
	soul := score.Lookup(ctx, p.scores, address, p.rng)
	p.transition(StateScored)

	p.transition(StateInsightInProgress)
	text, sourced := "", false
	if p.insights != nil {
		text, sourced = p.insights.Request(ctx, address, carvUID, soul.Value)
	}

	result := Compose(address, carvUID, soul, text, sourced)
	result.ID = p.newID()
	result.ScannedAt = p.now()
	p.session.complete(result)
	p.log.Debug("state changed", slog.String("state", string(StateComplete)), slog.String("scan_id", result.ID))
	p.ui.Render(result)

	logger.Audit().Info("scan completed",
		slog.String("scan_id", result.ID),
		slog.String("address", result.Address),
		slog.Int("score", result.Score),
		slog.Bool("score_sourced", result.ScoreSourced),
		slog.Bool("insight_sourced", result.InsightSourced),
	)
	p.publish(ctx, result)
	return result, nil
}

// ShareURL 返回最近一次扫描的分享链接，尚未完成扫描时返回 false。
func (p *Pipeline) ShareURL() (string, bool) {
	result, ok := p.session.LastResult()
	if !ok {
		return "", false
	}
	return ShareURL(result), true
}

// Compose 汇总扫描结果，洞察缺失时填入兜底文案。
func Compose(address, carvUID string, soul score.Result, insightText string, insightOK bool) Result {
	if carvUID == "" {
		carvUID = insight.DefaultCarvUID
	}
	return Result{
		Address:        address,
		CarvUID:        carvUID,
		Score:          soul.Value,
		ScoreSourced:   soul.Sourced,
		Insight:        PresentInsight(insightText, insightOK),
		InsightSourced: insightOK && insightText != "",
	}
}

// PresentInsight 返回展示给用户的洞察文本。
func PresentInsight(text string, ok bool) string {
	if !ok || text == "" {
		return FallbackInsight
	}
	return text
}

// fail 记录错误，需要展示给用户的错误以其消息作为提示。
func (p *Pipeline) fail(err *xerrors.Error) error {
	level := slog.LevelInfo
	switch err.Severity() {
	case xerrors.SeverityWarning:
		level = slog.LevelWarn
	case xerrors.SeverityCritical:
		level = slog.LevelError
	}
	p.log.Log(context.Background(), level, "scan flow interrupted",
		slog.String("code", string(err.Code())),
		slog.Any("error", err),
	)
	if xerrors.Surfaced(err) {
		p.ui.Alert(err.Message())
	}
	return err
}

func (p *Pipeline) transition(state State) {
	p.session.setState(state)
	p.log.Debug("state changed", slog.String("state", string(state)))
}

func (p *Pipeline) publish(ctx context.Context, result Result) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.Publish(ctx, events.ScanCompleted{
		ID:             result.ID,
		Address:        result.Address,
		Chain:          string(wallet.ClassifyAddress(result.Address)),
		CarvUID:        result.CarvUID,
		Score:          result.Score,
		ScoreSourced:   result.ScoreSourced,
		InsightSourced: result.InsightSourced,
		ScannedAt:      result.ScannedAt,
	})
	if err != nil {
		p.log.Warn("publish scan event failed", slog.String("scan_id", result.ID), slog.Any("error", err))
	}
}
