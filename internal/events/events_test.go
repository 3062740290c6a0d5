package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher(1)
	event := ScanCompleted{ID: "scan-1", Address: "0xabc", Score: 77, ScannedAt: time.Unix(1700000000, 0).UTC()}

	require.NoError(t, pub.Publish(context.Background(), event))
	require.Equal(t, event, <-pub.Events())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Publish(context.Background(), event))
	require.ErrorIs(t, pub.Publish(ctx, event), context.Canceled)

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())
	require.Error(t, pub.Publish(context.Background(), event))
}

func TestEncode(t *testing.T) {
	body, err := encode(ScanCompleted{ID: "scan-1", Address: "0xabc", Chain: "evm", Score: 50, ScoreSourced: true})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "scan-1", decoded["id"])
	require.Equal(t, true, decoded["score_sourced"])
	require.Equal(t, false, decoded["insight_sourced"])
}

func TestConstructorsValidate(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), RedisConfig{})
	require.Error(t, err)
	_, err = NewRabbitMQPublisher(RabbitMQConfig{})
	require.Error(t, err)
}

type brokenPublisher struct{ closed bool }

func (b *brokenPublisher) Publish(context.Context, ScanCompleted) error {
	return errors.New("broker unavailable")
}

func (b *brokenPublisher) Close() error {
	b.closed = true
	return nil
}

func TestFanoutPublisher(t *testing.T) {
	mem := NewMemoryPublisher(1)
	broken := &brokenPublisher{}
	fan := NewFanout(broken, nil, mem)
	event := ScanCompleted{ID: "scan-2", Score: 64}

	err := fan.Publish(context.Background(), event)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broker unavailable")
	require.Equal(t, event, <-mem.Events())

	require.NoError(t, fan.Close())
	require.True(t, broken.closed)
}

type recordingRedis struct {
	channel string
	message []byte
	err     error
	closed  bool
}

func (r *recordingRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
	} else {
		cmd.SetVal(0)
	}
	return cmd
}

func (r *recordingRedis) Close() error {
	r.closed = true
	return nil
}

func TestRedisPublisherUsesPubSub(t *testing.T) {
	client := &recordingRedis{}
	pub := newRedisPublisher(client, "")

	require.NoError(t, pub.Publish(context.Background(), ScanCompleted{ID: "scan-3", Address: "0xabc", Score: 81}))
	require.Equal(t, "soulscan:scans", client.channel)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.message, &decoded))
	require.Equal(t, "scan-3", decoded["id"])

	client.err = errors.New("READONLY")
	require.Error(t, pub.Publish(context.Background(), ScanCompleted{ID: "scan-4"}))

	require.NoError(t, pub.Close())
	require.True(t, client.closed)
}
