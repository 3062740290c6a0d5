// Package events fans completed scans out to an optional message sink
// (in-memory channel, Redis list or RabbitMQ queue).
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ScanCompleted 描述一次完成的扫描，不包含洞察正文。
type ScanCompleted struct {
	ID             string    `json:"id"`
	Address        string    `json:"address"`
	Chain          string    `json:"chain"`
	CarvUID        string    `json:"carv_uid"`
	Score          int       `json:"score"`
	ScoreSourced   bool      `json:"score_sourced"`
	InsightSourced bool      `json:"insight_sourced"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// Publisher 负责投递扫描完成事件。
type Publisher interface {
	Publish(ctx context.Context, event ScanCompleted) error
	Close() error
}

func encode(event ScanCompleted) ([]byte, error) {
	return json.Marshal(event)
}
