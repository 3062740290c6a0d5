package events

import (
	"context"
	"errors"
	"sync"
)

// MemoryPublisher 使用带缓冲的 channel 保存事件，主要用于测试与本地运行。
type MemoryPublisher struct {
	ch     chan ScanCompleted
	mu     sync.Mutex
	closed bool
}

// NewMemoryPublisher 创建一个内存事件通道。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan ScanCompleted, size)}
}

// Publish 将事件放入通道，通道已满时阻塞直到上下文取消。
func (p *MemoryPublisher) Publish(ctx context.Context, event ScanCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("事件通道已关闭")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.ch <- event:
		return nil
	}
}

// Events 返回只读事件通道。
func (p *MemoryPublisher) Events() <-chan ScanCompleted {
	return p.ch
}

// Close 关闭事件通道。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	return nil
}
