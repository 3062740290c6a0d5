// Package score looks up the soul score of a wallet and falls back to a
// random score whenever the score service cannot provide one.
package score

import (
	"context"
	"log/slog"
	"math/rand/v2"

	xerrors "soul-scanner/internal/errors"
	"soul-scanner/pkg/logger"
)

const (
	// FallbackMin and FallbackMax bound the random fallback score, inclusive.
	FallbackMin = 40
	FallbackMax = 100
)

// Service fetches a soul score for a wallet address.
type Service interface {
	SoulScore(ctx context.Context, address string) (int, error)
}

// Random is the subset of *rand.Rand used for fallback scores.
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// DefaultRandom draws from the math/rand/v2 global source, which is safe for
// concurrent use.
var DefaultRandom Random = globalRandom{}

// Result tags a score with where it came from.
type Result struct {
	Sourced bool `json:"sourced"`
	Value   int  `json:"value"`
}

// Fallback draws a uniformly distributed score in [FallbackMin, FallbackMax].
func Fallback(rng Random) int {
	if rng == nil {
		rng = DefaultRandom
	}
	return rng.IntN(FallbackMax-FallbackMin+1) + FallbackMin
}

// Lookup makes a single attempt against svc and falls back to a random score
// on any failure. It never returns an error. Values from the service are
// passed through without range checks.
func Lookup(ctx context.Context, svc Service, address string, rng Random) Result {
	if svc != nil {
		value, err := svc.SoulScore(ctx, address)
		if err == nil {
			return Result{Sourced: true, Value: value}
		}
		failure := xerrors.Wrap(xerrors.Classify(err, xerrors.CodeScoreUnavailable), err, "",
			xerrors.WithMetadata("address", address))
		logger.Named("score").Warn("score service failed, using fallback",
			slog.String("code", string(failure.Code())),
			slog.String("address", address),
			slog.Any("error", failure),
		)
	}
	return Result{Sourced: false, Value: Fallback(rng)}
}
