package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/together/internal/repository/directory"
)

const (
	defaultPublisherQueue = 1024
	publishTimeout        = 2 * time.Second
)

type Directory interface {
	Put(context.Context, directory.Summary) error
	Delete(context.Context, string) error
}

type publishJob struct {
	summary directory.Summary
	delete  bool
}

// Publisher mirrors room summaries into a Directory from a single worker, so
// writes for one room land in the order rooms produced them and no room
// actor ever waits on the directory.
type Publisher struct {
	dir    Directory
	queue  chan publishJob
	done   chan struct{}
	logger *slog.Logger
	closed bool
	mu     sync.RWMutex
}

func NewPublisher(dir Directory, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = defaultPublisherQueue
	}

	p := &Publisher{
		dir:    dir,
		queue:  make(chan publishJob, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.run()

	return p
}

func (p *Publisher) Put(summary directory.Summary) {
	p.enqueue(publishJob{summary: summary})
}

func (p *Publisher) Delete(roomID string) {
	p.enqueue(publishJob{summary: directory.Summary{RoomID: roomID}, delete: true})
}

func (p *Publisher) enqueue(job publishJob) {
	if p == nil {
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.queue <- job:
	default:
		p.logger.Warn("directory queue full, dropping update", "room_id", job.summary.RoomID, "delete", job.delete)
	}
}

// Close stops accepting jobs and waits for the queued ones to be written.
func (p *Publisher) Close() {
	if p == nil {
		return
	}

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)

	for job := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		var err error
		if job.delete {
			err = p.dir.Delete(ctx, job.summary.RoomID)
			if errors.Is(err, directory.ErrRoomNotFound) {
				err = nil
			}
		} else {
			err = p.dir.Put(ctx, job.summary)
		}
		cancel()

		if err != nil {
			p.logger.Error("failed to publish room summary", "room_id", job.summary.RoomID, "delete", job.delete, "error", err)
		}
	}
}
