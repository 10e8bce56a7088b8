package export

import (
	"context"
	"sync"
)

type serializeTask struct {
	records    []Record
	onProgress func(int)
	result     chan string
}

// Pool runs CSV serialization on a fixed number of worker goroutines so a
// large job competes with other serializations, never with request handling.
type Pool struct {
	serializer *Serializer
	tasks      chan serializeTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewPool starts the given number of serialization workers.
func NewPool(workers int, serializer *Serializer) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if serializer == nil {
		serializer = NewSerializer(0)
	}
	p := &Pool{serializer: serializer, tasks: make(chan serializeTask)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.result <- p.serializer.Serialize(t.records, t.onProgress)
	}
}

// Serialize submits the records and waits for the CSV text, bounded by the
// caller's context. A deadline hit while queued or while a worker is still
// rendering returns ctx.Err(); the worker is not interrupted but delivers
// into a buffered channel, so nothing leaks.
func (p *Pool) Serialize(ctx context.Context, records []Record, onProgress func(int)) (string, error) {
	t := serializeTask{records: records, onProgress: onProgress, result: make(chan string, 1)}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case out := <-t.result:
		return out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight serializations.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
