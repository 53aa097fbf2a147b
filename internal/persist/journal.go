package persist

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/system"
	"go.uber.org/zap"
)

// Sink stores journal batches. JournalRepo is the PostgreSQL sink.
type Sink interface {
	WriteBatch(ctx context.Context, b Batch) error
}

// Journal is a persist-phase system that copies each dispatcher batch's
// component changes to a Sink. Update only hands the batch over; a separate
// goroutine started with Run does the writing, so the dispatcher never waits
// on the database. Batches arriving while the hand-over queue is full are
// dropped and counted.
type Journal struct {
	sink      Sink
	log       *zap.Logger
	run       int64
	batchSize int
	ignore    map[ecs.ComponentID]bool

	queue   chan Batch
	seq     int64 // dispatcher only
	dropped atomic.Int64
	written atomic.Int64
}

// NewJournal creates a journal. batchSize caps the records per sink write;
// queue is the number of batches that may wait for the writer.
func NewJournal(sink Sink, log *zap.Logger, batchSize, queue int) *Journal {
	if batchSize <= 0 {
		batchSize = 500
	}
	if queue <= 0 {
		queue = 256
	}
	return &Journal{
		sink:      sink,
		log:       log.With(zap.String("component", "journal")),
		run:       time.Now().UnixNano(),
		batchSize: batchSize,
		ignore:    make(map[ecs.ComponentID]bool),
		queue:     make(chan Batch, queue),
	}
}

// Ignore excludes components from the journal, such as ones holding funcs.
// It must be called before the app runs.
func (j *Journal) Ignore(ids ...ecs.ComponentID) *Journal {
	for _, id := range ids {
		j.ignore[id] = true
	}
	return j
}

// RunID identifies this process run in the stored batches.
func (j *Journal) RunID() int64 { return j.run }

// Dropped returns how many batches were lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Written returns how many records reached the sink.
func (j *Journal) Written() int64 { return j.written.Load() }

func (j *Journal) Phase() system.Phase { return system.PhasePersist }

func (j *Journal) Update(w *ecs.World) {
	changes := w.Changes()
	if len(changes) == 0 {
		return
	}
	records := make([]Record, 0, len(changes))
	for _, c := range changes {
		if j.ignore[c.Component] {
			continue
		}
		rec := Record{Entity: c.Entity.String(), Component: c.Component.Name(), Removed: c.Removed}
		if !c.Removed {
			rec.Value = fmt.Sprint(c.Value)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}
	j.seq++
	select {
	case j.queue <- Batch{Run: j.run, Seq: j.seq, Records: records}:
	default:
		j.dropped.Add(1)
		j.log.Warn("journal queue full, batch dropped", zap.Int64("seq", j.seq), zap.Int("changes", len(records)))
	}
}

// Run writes queued batches until ctx is done, then drains whatever is left
// with a short grace period.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case b := <-j.queue:
			j.write(ctx, b)
		case <-ctx.Done():
			j.drain()
			return
		}
	}
}

func (j *Journal) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case b := <-j.queue:
			j.write(ctx, b)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, b Batch) {
	for start := 0; start < len(b.Records); start += j.batchSize {
		end := min(start+j.batchSize, len(b.Records))
		chunk := Batch{Run: b.Run, Seq: b.Seq, Records: b.Records[start:end]}
		if err := j.sink.WriteBatch(ctx, chunk); err != nil {
			j.log.Error("journal write failed", zap.Int64("seq", b.Seq), zap.Int("changes", len(chunk.Records)), zap.Error(err))
			continue
		}
		j.written.Add(int64(len(chunk.Records)))
	}
}
