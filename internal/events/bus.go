// Package events 提供进程内的发布订阅。
package events

import "sync"

// Bus 向所有订阅者广播事件。订阅者缓冲满时丢弃该订阅者的这条事件，
// 发布方永不阻塞。
type Bus[T any] struct {
	mu      sync.Mutex
	subs    []chan T
	buffer  int
	closed  bool
	low     func(T) bool
	reserve int
}

// NewBus 创建总线，buffer 为每个订阅通道的容量（<=0 时取 32）。
func NewBus[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = 32
	}
	return &Bus[T]{buffer: buffer}
}

// WithLowPriority 标记可丢弃的事件：订阅通道剩余容量不超过 reserve 时
// 这类事件直接丢弃，空位留给其它事件。返回 b 本身。
func (b *Bus[T]) WithLowPriority(low func(T) bool, reserve int) *Bus[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reserve >= b.buffer {
		reserve = b.buffer - 1
	}
	if reserve < 0 {
		reserve = 0
	}
	b.low = low
	b.reserve = reserve
	return b
}

// Subscribe 返回新的订阅通道；总线关闭后返回已关闭的通道。
func (b *Bus[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan T)
		close(ch)
		return ch
	}
	ch := make(chan T, b.buffer)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus[T]) Publish(evt T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	low := b.low != nil && b.low(evt)
	for _, ch := range b.subs {
		if low && cap(ch)-len(ch) <= b.reserve {
			continue
		}
		select {
		case ch <- evt:
		default:
		}
	}
}

// Close 关闭所有订阅通道，可重复调用。
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.closed = true
}
