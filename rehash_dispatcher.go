package agencyAuth

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// rehashJob carries the plaintext only until a worker hashes it.
type rehashJob struct {
	subjectID string
	plaintext string
}

// rehashDispatcher upgrades verified legacy or under-cost hashes off the
// login path. Every failure ends in the logger, a metric and an audit event.
type rehashDispatcher struct {
	q       *dispatcher[rehashJob]
	hash    func(string) (string, error)
	store   CredentialStore
	timeout time.Duration
	log     logrus.FieldLogger
	onDone  func(ctx context.Context, subjectID string, err error)
}

func newRehashDispatcher(
	cfg RehashConfig,
	hash func(string) (string, error),
	store CredentialStore,
	log logrus.FieldLogger,
	onDone func(ctx context.Context, subjectID string, err error),
) *rehashDispatcher {
	if onDone == nil {
		onDone = func(context.Context, string, error) {}
	}
	d := &rehashDispatcher{
		hash:    hash,
		store:   store,
		timeout: cfg.Timeout,
		log:     log,
		onDone:  onDone,
	}
	d.q = newDispatcher(cfg.Workers, cfg.QueueSize, true, d.process)
	return d
}

// Enqueue never blocks. A full or closed queue is reported as a failure; the
// next login with the same hash retries.
func (d *rehashDispatcher) Enqueue(subjectID, plaintext string) bool {
	if d == nil {
		return false
	}
	if d.q.submit(context.Background(), rehashJob{subjectID: subjectID, plaintext: plaintext}) {
		return true
	}
	err := fmt.Errorf("%w: queue full or closed", ErrRehashFailed)
	d.log.WithField("subject_id", subjectID).WithError(err).Warn("agencyAuth: password rehash not queued")
	d.onDone(context.Background(), subjectID, err)
	return false
}

func (d *rehashDispatcher) process(parent context.Context, job rehashJob) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	newHash, err := d.hash(job.plaintext)
	if err != nil {
		err = fmt.Errorf("%w: hash: %v", ErrRehashFailed, err)
		d.log.WithField("subject_id", job.subjectID).WithError(err).Warn("agencyAuth: password rehash generation failed")
		d.onDone(ctx, job.subjectID, err)
		return
	}

	if err := d.store.UpdatePasswordHash(ctx, job.subjectID, newHash); err != nil {
		err = fmt.Errorf("%w: update: %v", ErrRehashFailed, err)
		d.log.WithField("subject_id", job.subjectID).WithError(err).Warn("agencyAuth: password rehash update failed")
		d.onDone(ctx, job.subjectID, err)
		return
	}

	d.log.WithField("subject_id", job.subjectID).Info("agencyAuth: password hash upgraded")
	d.onDone(ctx, job.subjectID, nil)
}

// Close drains queued jobs.
func (d *rehashDispatcher) Close() {
	if d == nil {
		return
	}
	d.q.close()
}

func (d *rehashDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.q.droppedCount()
}
