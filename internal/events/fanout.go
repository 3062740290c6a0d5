package events

import (
	"context"
	"errors"
	"fmt"
)

// FanoutPublisher 将同一事件投递到多个发布器，单个发布器失败不影响其余发布器。
type FanoutPublisher struct {
	publishers []Publisher
}

// NewFanout 创建 FanoutPublisher，忽略 nil 发布器。
func NewFanout(publishers ...Publisher) *FanoutPublisher {
	set := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			set = append(set, p)
		}
	}
	return &FanoutPublisher{publishers: set}
}

// Publish 依次投递事件，并汇总所有失败。
func (f *FanoutPublisher) Publish(ctx context.Context, event ScanCompleted) error {
	var errs []error
	for i, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close 关闭全部发布器。
func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
