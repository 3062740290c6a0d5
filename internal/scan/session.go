package scan

import (
	"sync"
	"time"
)

// State 表示扫描流程所处的阶段。
type State string

const (
	StateIdle              State = "idle"
	StateConnecting        State = "connecting"
	StateConnected         State = "connected"
	StateScoringInProgress State = "scoring"
	StateScored            State = "scored"
	StateInsightInProgress State = "insight"
	StateComplete          State = "complete"
)

// Result 是一次扫描的汇总结果，只保存在会话内存中。
type Result struct {
	ID             string    `json:"id"`
	Address        string    `json:"address"`
	CarvUID        string    `json:"carvUid"`
	Score          int       `json:"score"`
	ScoreSourced   bool      `json:"scoreSourced"`
	Insight        string    `json:"insight"`
	InsightSourced bool      `json:"insightSourced"`
	ScannedAt      time.Time `json:"scannedAt"`
}

// Session 保存页面生命周期内的钱包地址与最近一次扫描结果。
type Session struct {
	mu      sync.RWMutex
	state   State
	address string
	last    *Result
}

// NewSession 返回处于 Idle 状态的空会话。
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State 返回当前阶段。
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Address 返回已连接的钱包地址。
func (s *Session) Address() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address, s.address != ""
}

// LastResult 返回最近一次完成的扫描结果的副本。
func (s *Session) LastResult() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) connected(address string) {
	s.mu.Lock()
	s.address = address
	s.state = StateConnected
	s.mu.Unlock()
}

func (s *Session) complete(result Result) {
	s.mu.Lock()
	s.last = &result
	s.state = StateComplete
	s.mu.Unlock()
}
