package api

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Personas 是生成洞察时随机选用的叙述口吻。
var Personas = []string{
	"mystic oracle",
	"cyberpunk guide",
	"ancient sage",
	"space traveler",
	"builder mentor",
}

// Random 是选择 persona 所需的随机数来源，*rand.Rand 即满足该接口。
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// lockedRandom 让非并发安全的随机源可以在多个请求间共享。
type lockedRandom struct {
	mu  sync.Mutex
	rng Random
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// pickPersona 均匀地选择一个 persona。
func pickPersona(rng Random) string {
	return Personas[rng.IntN(len(Personas))]
}

// buildPrompt 将 persona、钱包、CARV UID 与分数拼装成提示词。
func buildPrompt(persona string, req askRequest) string {
	carvUID := strings.TrimSpace(req.CarvUID)
	if carvUID == "" {
		carvUID = "Not provided"
	}
	score := req.SoulScore.String()
	if score == "" {
		score = "unknown"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("You are a %s for CARV Soul Scanner.\n", persona))
	builder.WriteString(fmt.Sprintf("User wallet: %s\n", req.Wallet))
	builder.WriteString(fmt.Sprintf("CARV UID: %s\n", carvUID))
	builder.WriteString(fmt.Sprintf("Soul Score: %s\n", score))
	builder.WriteString("\nWrite ONE short, original, motivating insight (1-2 sentences). ")
	builder.WriteString("Use Web3 language when relevant. ")
	builder.WriteString("Do not repeat exact phrases; vary tone per request.\n")
	return builder.String()
}
