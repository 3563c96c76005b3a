package agencyAuth

import (
	"context"
	"sync"
	"sync/atomic"
)

// dispatcher is a bounded queue drained by a fixed set of worker goroutines.
// Close stops intake and waits until every queued item has been handled.
type dispatcher[T any] struct {
	ch         chan T
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	mu         sync.RWMutex // held for reading while sending; close takes it to stop intake
	closed     bool
	closeOnce  sync.Once
	dropIfFull bool
	handle     func(context.Context, T)
}

func newDispatcher[T any](workers, buffer int, dropIfFull bool, handle func(context.Context, T)) *dispatcher[T] {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &dispatcher[T]{
		ch:         make(chan T, buffer),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
		handle:     handle,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}

	return d
}

func (d *dispatcher[T]) run() {
	defer d.wg.Done()

	ctx := context.Background()
	for {
		select {
		case item := <-d.ch:
			d.handle(ctx, item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.handle(ctx, item)
				default:
					return
				}
			}
		}
	}
}

// submit queues item and reports whether it was accepted. With dropIfFull a
// full buffer drops the item and counts it; otherwise submit blocks until
// there is room, ctx ends or the dispatcher closes.
func (d *dispatcher[T]) submit(ctx context.Context, item T) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.ch <- item:
			return true
		case <-d.done:
			return false
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.ch <- item:
		return true
	case <-ctx.Done():
		return false
	case <-d.done:
		return false
	}
}

func (d *dispatcher[T]) close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		// Workers keep draining while pending senders finish, so Lock cannot
		// starve; after it, no send can start.
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
		d.wg.Wait()
	})
}

func (d *dispatcher[T]) droppedCount() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

/*
====================================
AUDIT
====================================
*/

type auditDispatcher struct {
	q *dispatcher[AuditEvent]
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	return &auditDispatcher{
		q: newDispatcher(1, cfg.BufferSize, cfg.DropIfFull, sink.Emit),
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.q.submit(ctx, event)
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.q.close()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.q.droppedCount()
}
