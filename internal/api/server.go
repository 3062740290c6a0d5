package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"time"

	xerrors "soul-scanner/internal/errors"
	"soul-scanner/internal/llm"
	"soul-scanner/internal/observability/metrics"
	"soul-scanner/pkg/logger"
)

const (
	// AskPath 是洞察代理的路由。
	AskPath = "/api/ask"
	// FallbackAnswer 在上游没有返回可用文本时使用。
	FallbackAnswer = "Your soul hums with potential — keep building."

	defaultMaxTokens   = 80
	defaultTemperature = 1.0
)

// Server 负责暴露洞察代理接口。
type Server struct {
	addr              string
	llmClient         llm.Client
	rng               Random
	maxTokens         int
	temperature       float64
	readHeaderTimeout time.Duration
	log               *slog.Logger
}

// Option 定义可选的 Server 配置。
type Option func(*Server)

// WithRandom 注入 persona 选择使用的随机源，便于测试固定种子。
func WithRandom(rng Random) Option {
	return func(s *Server) {
		if rng != nil {
			s.rng = &lockedRandom{rng: rng}
		}
	}
}

// WithCompletion 覆盖上游补全的 max_tokens 与 temperature。
func WithCompletion(maxTokens int, temperature float64) Option {
	return func(s *Server) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		if temperature > 0 {
			s.temperature = temperature
		}
	}
}

// WithReadHeaderTimeout 设置读取请求头的超时时间。
func WithReadHeaderTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.readHeaderTimeout = timeout
		}
	}
}

// NewServer 构造代理服务实例。llmClient 为 nil 表示未配置上游密钥，
// 此时 /api/ask 返回 500。
func NewServer(addr string, llmClient llm.Client, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		llmClient:         llmClient,
		rng:               globalRandom{},
		maxTokens:         defaultMaxTokens,
		temperature:       defaultTemperature,
		readHeaderTimeout: 5 * time.Second,
		log:               logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回挂载全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(AskPath, metrics.Instrument("ask", s.recoverer(http.HandlerFunc(s.handleAsk))))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("insight proxy listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// askRequest 是 /api/ask 的请求体。
type askRequest struct {
	Wallet    string      `json:"wallet"`
	CarvUID   string      `json:"carvUid"`
	SoulScore json.Number `json:"soulScore"`
}

type answerBody struct {
	Answer string `json:"answer"`
}

type errorBody struct {
	Error string `json:"error"`
}

// handleAsk 处理洞察生成请求。
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	// 请求体无法解析时按空字段处理。
	var req askRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.log.Warn("ask body not decodable", slog.Any("error", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "")))
			req = askRequest{}
		}
	}

	if s.llmClient == nil {
		s.log.Error("api/ask rejected", slog.Any("error", xerrors.New(xerrors.CodeMissingCredential, "OPENAI_API_KEY not configured")))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Missing OPENAI_API_KEY"})
		return
	}

	persona := pickPersona(s.rng)
	resp, err := s.llmClient.Generate(r.Context(), llm.Request{
		Prompt:      buildPrompt(persona, req),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		var statusErr *llm.StatusError
		if stdErrors.As(err, &statusErr) {
			wrapped := xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "",
				xerrors.WithMetadata("status", http.StatusText(statusErr.StatusCode)))
			s.log.Error("OpenAI error", slog.Int("status", statusErr.StatusCode), slog.Any("error", wrapped))
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "OpenAI API error"})
			return
		}
		s.log.Error("api/ask error", slog.Any("error", xerrors.Wrap(xerrors.Classify(err, xerrors.CodeUpstreamFailure), err, "")))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Server error"})
		return
	}

	answer := ""
	if resp != nil {
		answer = resp.Text
	}
	if answer == "" {
		answer = FallbackAnswer
	}
	s.log.Debug("insight generated", slog.String("persona", persona), slog.String("wallet", req.Wallet))
	writeJSON(w, http.StatusOK, answerBody{Answer: answer})
}

// recoverer 将处理过程中的 panic 转换为 500 响应。
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("api/ask panic", slog.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
