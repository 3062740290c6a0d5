package scan

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	xerrors "soul-scanner/internal/errors"
	"soul-scanner/internal/events"
	"soul-scanner/internal/insight"
	"soul-scanner/internal/score"
	"soul-scanner/internal/wallet"
	"soul-scanner/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	m.Run()
}

type recordingUI struct {
	mu          sync.Mutex
	alerts      []string
	wallet      string
	scanEnabled bool
	uid         string
	loading     string
	rendered    []Result
}

func (u *recordingUI) Alert(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.alerts = append(u.alerts, message)
}

func (u *recordingUI) ShowWallet(address string) { u.wallet = address }

func (u *recordingUI) SetScanEnabled(enabled bool) { u.scanEnabled = enabled }

func (u *recordingUI) ShowCarvUID(uid string) { u.uid = uid }

func (u *recordingUI) ShowLoading(message string) { u.loading = message }

func (u *recordingUI) Render(result Result) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rendered = append(u.rendered, result)
}

type stubScores struct {
	value int
	err   error
	calls int
}

func (s *stubScores) SoulScore(context.Context, string) (int, error) {
	s.calls++
	return s.value, s.err
}

type stubInsights struct {
	text  string
	ok    bool
	calls int
	score int
	uid   string
}

func (s *stubInsights) Request(_ context.Context, _ string, carvUID string, soulScore int) (string, bool) {
	s.calls++
	s.uid = carvUID
	s.score = soulScore
	return s.text, s.ok
}

func evmEnv(accounts ...string) wallet.EnvironmentSnapshot {
	return wallet.EnvironmentSnapshot{
		Ethereum: &wallet.EthereumObject{IsMetaMask: true, Provider: &wallet.StaticEVM{Accounts: accounts}},
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	ui := &recordingUI{}
	p := New(ui, nil, nil)

	_, err := p.Connect(context.Background(), wallet.EnvironmentSnapshot{})
	require.Error(t, err)
	require.Equal(t, xerrors.CodeNoProvider, xerrors.CodeOf(err))
	require.Equal(t, []string{"Please install Backpack (Solana) or MetaMask/OKX (EVM)"}, ui.alerts)
	require.Equal(t, StateIdle, p.Session().State())
	require.False(t, ui.scanEnabled)
}

func TestConnectFailureKeepsAddressUnset(t *testing.T) {
	ui := &recordingUI{}
	p := New(ui, nil, nil)
	env := wallet.EnvironmentSnapshot{
		Ethereum: &wallet.EthereumObject{Provider: &wallet.StaticEVM{Error: "User rejected the request."}},
	}

	_, err := p.Connect(context.Background(), env)
	require.Error(t, err)
	require.Equal(t, xerrors.CodeConnectFailed, xerrors.CodeOf(err))
	require.Equal(t, []string{"Wallet connection failed: User rejected the request."}, ui.alerts)
	require.Equal(t, StateIdle, p.Session().State())
	_, ok := p.Session().Address()
	require.False(t, ok)
}

func TestConnectFailureKeepsPreviousAddress(t *testing.T) {
	ui := &recordingUI{}
	p := New(ui, nil, nil)

	_, err := p.Connect(context.Background(), evmEnv("0xAAAA000000000000000000000000000000000001"))
	require.NoError(t, err)

	_, err = p.Connect(context.Background(), evmEnv())
	require.ErrorIs(t, err, wallet.ErrNoAccount)

	addr, ok := p.Session().Address()
	require.True(t, ok)
	require.Equal(t, "0xAAAA000000000000000000000000000000000001", addr)
}

func TestConnectPrefersSolanaPublicKey(t *testing.T) {
	ui := &recordingUI{}
	p := New(ui, nil, nil)
	env := wallet.EnvironmentSnapshot{
		Solana: &wallet.SolanaObject{IsBackpack: true, Provider: &wallet.StaticSolana{
			PublicKey: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			Address:   "ignored",
		}},
	}

	addr, err := p.Connect(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", addr)
	require.Equal(t, addr, ui.wallet)
	require.True(t, ui.scanEnabled)
	require.Equal(t, StateConnected, p.Session().State())
}

func TestScanRequiresConnection(t *testing.T) {
	ui := &recordingUI{}
	scores := &stubScores{value: 70}
	insights := &stubInsights{text: "x", ok: true}
	p := New(ui, scores, insights)

	_, err := p.Scan(context.Background(), "uid")
	require.Equal(t, xerrors.CodeNotConnected, xerrors.CodeOf(err))
	require.Equal(t, []string{"Connect wallet first"}, ui.alerts)
	require.Equal(t, StateIdle, p.Session().State())
	require.Zero(t, scores.calls)
	require.Zero(t, insights.calls)
	require.Empty(t, ui.rendered)
}

func TestScanSourcedScoreAndInsight(t *testing.T) {
	ui := &recordingUI{}
	scores := &stubScores{value: 87}
	insights := &stubInsights{text: "The oracle sees a builder.", ok: true}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := New(ui, scores, insights, WithClock(func() time.Time { return now }))

	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)

	result, err := p.Scan(context.Background(), "  carv-42  ")
	require.NoError(t, err)
	require.Equal(t, "carv-42", result.CarvUID)
	require.Equal(t, "carv-42", ui.uid)
	require.Equal(t, "Channeling CARV AI...", ui.loading)
	require.Equal(t, 87, result.Score)
	require.True(t, result.ScoreSourced)
	require.Equal(t, 87, insights.score)
	require.Equal(t, "The oracle sees a builder.", result.Insight)
	require.True(t, result.InsightSourced)
	require.Equal(t, now, result.ScannedAt)
	require.NotEmpty(t, result.ID)
	require.Equal(t, StateComplete, p.Session().State())
	require.Equal(t, []Result{result}, ui.rendered)
}

func TestScanDefaultsCarvUID(t *testing.T) {
	insights := &stubInsights{}
	p := New(nil, &stubScores{value: 50}, insights)
	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)

	result, err := p.Scan(context.Background(), "   ")
	require.NoError(t, err)
	require.Equal(t, insight.DefaultCarvUID, result.CarvUID)
	require.Equal(t, insight.DefaultCarvUID, insights.uid)
}

func TestScanFallbackInsight(t *testing.T) {
	p := New(nil, &stubScores{value: 61}, &stubInsights{ok: false})
	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)

	result, err := p.Scan(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "Your soul whispers of building — scan again for a fresher insight.", result.Insight)
	require.False(t, result.InsightSourced)
	require.NotContains(t, ShareText(result), "Your soul whispers of building")
}

func TestPresentInsight(t *testing.T) {
	const fallback = "Your soul whispers of building — scan again for a fresher insight."
	require.Equal(t, fallback, PresentInsight("", false))
	require.Equal(t, fallback, PresentInsight("", true))
	require.Equal(t, "hello", PresentInsight("hello", true))
}

func TestScanEndToEndWithUnreachableScoreService(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	var received insight.Request
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Seek patterns in the chain."}`))
	}))
	defer proxy.Close()

	publisher := events.NewMemoryPublisher(1)
	ui := &recordingUI{}
	p := New(ui,
		score.NewCARVClient(score.CARVConfig{BaseURL: deadURL, Timeout: time.Second}),
		insight.NewClient(insight.Config{Endpoint: proxy.URL, Timeout: time.Second}),
		WithRandom(rand.New(rand.NewPCG(3, 4))),
		WithPublisher(publisher),
	)

	_, err := p.Connect(context.Background(), evmEnv("0x1234567890abcdef1234567890abcdef12345678"))
	require.NoError(t, err)

	result, err := p.Scan(context.Background(), "")
	require.NoError(t, err)
	require.False(t, result.ScoreSourced)
	require.GreaterOrEqual(t, result.Score, score.FallbackMin)
	require.LessOrEqual(t, result.Score, score.FallbackMax)
	require.Equal(t, "Seek patterns in the chain.", result.Insight)
	require.Equal(t, result.Score, received.SoulScore)
	require.Equal(t, insight.DefaultCarvUID, received.CarvUID)
	require.Equal(t, StateComplete, p.Session().State())

	event := <-publisher.Events()
	require.Equal(t, result.ID, event.ID)
	require.Equal(t, string(wallet.ChainEVM), event.Chain)
	require.Equal(t, result.Score, event.Score)
	require.False(t, event.ScoreSourced)
	require.True(t, event.InsightSourced)
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, events.ScanCompleted) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestScanIgnoresPublishFailure(t *testing.T) {
	pub := &failingPublisher{}
	p := New(nil, &stubScores{value: 75}, &stubInsights{text: "ok", ok: true}, WithPublisher(pub))
	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)

	result, err := p.Scan(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 75, result.Score)
	require.Equal(t, 1, pub.calls)
}

func TestRescanOverwritesLastResult(t *testing.T) {
	scores := &stubScores{value: 55}
	p := New(nil, scores, &stubInsights{text: "first", ok: true})
	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)

	first, err := p.Scan(context.Background(), "")
	require.NoError(t, err)
	scores.value = 66
	second, err := p.Scan(context.Background(), "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	last, ok := p.Session().LastResult()
	require.True(t, ok)
	require.Equal(t, 66, last.Score)
	require.Equal(t, 2, scores.calls)
}

func TestShareText(t *testing.T) {
	result := Result{
		Address:        "0x1234567890abcdef1234567890abcdef12345678",
		Score:          88,
		Insight:        "Builders shine.",
		InsightSourced: true,
	}
	want := "I scanned my CARV soul 🔮\nWallet: 0x1234...5678\nSoul Points: 88\nBuilders shine. \nhttps://carvex-soul-scanner.vercel.app"
	require.Equal(t, want, ShareText(result))

	shareURL := ShareURL(result)
	require.True(t, strings.HasPrefix(shareURL, TweetIntentURL+"?text="))
	parsed, err := url.Parse(shareURL)
	require.NoError(t, err)
	require.Equal(t, want, parsed.Query().Get("text"))
}

func TestShareTextShortAddress(t *testing.T) {
	result := Result{Address: "0x1234abcdef", Score: 42}
	require.Contains(t, ShareText(result), "Wallet: 0x1234...cdef\n")
	require.Contains(t, ShareText(result), "Soul Points: 42\n \n")
}

func TestPipelineShareURL(t *testing.T) {
	p := New(nil, &stubScores{value: 90}, &stubInsights{text: "hi", ok: true})
	_, ok := p.ShareURL()
	require.False(t, ok)

	_, err := p.Connect(context.Background(), evmEnv("0xabc"))
	require.NoError(t, err)
	result, err := p.Scan(context.Background(), "")
	require.NoError(t, err)

	shareURL, ok := p.ShareURL()
	require.True(t, ok)
	require.Equal(t, ShareURL(result), shareURL)
}

func TestFailAlertsOnlySurfacedErrors(t *testing.T) {
	ui := &recordingUI{}
	p := New(ui, nil, nil)

	err := p.fail(xerrors.New(xerrors.CodeScoreUnavailable, "score service down"))
	require.Equal(t, xerrors.CodeScoreUnavailable, xerrors.CodeOf(err))
	require.Empty(t, ui.alerts)

	_ = p.fail(xerrors.New(xerrors.CodeConnectFailed, "Wallet connection failed: boom"))
	require.Equal(t, []string{"Wallet connection failed: boom"}, ui.alerts)
}

func TestShareURLEncodesLikeEncodeURIComponent(t *testing.T) {
	result := Result{
		Address:        "0x1234567890abcdef1234567890abcdef12345678",
		Score:          88,
		Insight:        "Build (boldly)! It's *yours* + more",
		InsightSourced: true,
	}
	want := "https://twitter.com/intent/tweet?text=" +
		"I%20scanned%20my%20CARV%20soul%20%F0%9F%94%AE%0A" +
		"Wallet%3A%200x1234...5678%0A" +
		"Soul%20Points%3A%2088%0A" +
		"Build%20(boldly)!%20It's%20*yours*%20%2B%20more%20%0A" +
		"https%3A%2F%2Fcarvex-soul-scanner.vercel.app"
	require.Equal(t, want, ShareURL(result))
}
