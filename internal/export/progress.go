package export

import "sync"

// snapshotBuffer bounds how many undelivered snapshots a subscriber may lag
// behind before the oldest one is dropped in its favor.
const snapshotBuffer = 256

// ProgressBus is an in-process publish/subscribe channel for job snapshots,
// keyed by job id. It is injected into the coordinator rather than held as a
// global so multiple coordinators can own disjoint job sets, and so a
// broadcast-capable transport can replace it without touching the
// coordinator. It does not survive the process: a replica that is not running
// a job's batch loop sees none of its snapshots.
type ProgressBus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Job
}

// NewProgressBus creates an empty bus.
func NewProgressBus() *ProgressBus {
	return &ProgressBus{subs: make(map[string]map[int]chan Job)}
}

// Subscribe registers for every snapshot of the given job published after
// this call. The channel closes once a terminal snapshot has been delivered.
// The returned cancel function detaches the subscriber early; it is safe to
// call after the channel has closed.
func (b *ProgressBus) Subscribe(jobID string) (<-chan Job, func()) {
	ch := make(chan Job, snapshotBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int]chan Job)
	}
	b.subs[jobID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[jobID]; ok {
			if _, live := subs[id]; live {
				delete(subs, id)
				close(ch)
				if len(subs) == 0 {
					delete(b.subs, jobID)
				}
			}
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to every subscriber of its job id. A
// subscriber that has fallen a full buffer behind loses its oldest snapshot
// so publishing never blocks the batch loop. Publishing a terminal snapshot
// closes all of the job's subscriber channels.
func (b *ProgressBus) Publish(job Job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[job.ID]
	for _, ch := range subs {
		select {
		case ch <- job:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- job:
			default:
			}
		}
	}

	if job.Status.Terminal() && subs != nil {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, job.ID)
	}
}
