package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/telemetry"
)

// ErrIntakeFull is returned by TryEnqueue when the queue is at capacity.
var ErrIntakeFull = errors.New("event intake queue full")

const (
	defaultIntakeCapacity  = 16 * 1024
	fallbackIntakeCapacity = 1024
	defaultBatchSize       = 256

	// maxPooledBuffer caps buffers returned to the pool so one huge
	// frame cannot pin resident memory.
	maxPooledBuffer = 256 * 1024
)

// frame wraps one raw event payload and owns its pooled buffer.
// Consumers must call done exactly once.
type frame struct {
	payload []byte
	seq     uint64

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

func (f *frame) done() {
	f.once.Do(func() {
		if f.buf != nil {
			if cap(f.buf.B) > maxPooledBuffer {
				f.buf = nil
			} else {
				bytebufferpool.Put(f.buf)
				f.buf = nil
			}
		}
		f.payload = nil
		framePool.Put(f)
	})
}

var framePool = sync.Pool{New: func() any { return &frame{} }}

// Intake is the bounded queue between the transport and the engine.
// Producers hand it raw event frames; a single worker decodes them,
// groups them into ordered batches and reconciles each batch as one
// unit.
type Intake struct {
	engine    *Engine
	ch        chan *frame
	capacity  int
	batchSize int

	seq     uint64
	dropped uint64

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	doneCh   chan struct{}
}

// NewIntake builds an intake feeding the given engine.
func NewIntake(e *Engine, capacity, batchSize int) *Intake {
	if capacity <= 0 {
		capacity = fallbackIntakeCapacity
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Intake{
		engine:    e,
		ch:        make(chan *frame, capacity),
		capacity:  capacity,
		batchSize: batchSize,
		stop:      make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// TryEnqueue copies payload into a pooled buffer and enqueues it
// without blocking. A full queue drops the frame and returns
// ErrIntakeFull; the caller may choose to reject or spill.
func (in *Intake) TryEnqueue(payload []byte) error {
	f := framePool.Get().(*frame)
	f.once = sync.Once{}
	f.seq = atomic.AddUint64(&in.seq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], payload...)
		f.payload = bb.B[:len(payload)]
	}
	f.buf = bb

	select {
	case in.ch <- f:
		return nil
	default:
		f.done()
		atomic.AddUint64(&in.dropped, 1)
		telemetry.IntakeDropped.Inc()
		return ErrIntakeFull
	}
}

// Enqueue blocks until the frame is accepted or ctx expires.
func (in *Intake) Enqueue(ctx context.Context, payload []byte) error {
	f := framePool.Get().(*frame)
	f.once = sync.Once{}
	f.seq = atomic.AddUint64(&in.seq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], payload...)
		f.payload = bb.B[:len(payload)]
	}
	f.buf = bb

	select {
	case in.ch <- f:
		return nil
	case <-ctx.Done():
		f.done()
		atomic.AddUint64(&in.dropped, 1)
		return ctx.Err()
	}
}

// EnqueueEvents is a convenience for already-typed events; it encodes
// and enqueues them in order, preserving batch ordering.
func (in *Intake) EnqueueEvents(ctx context.Context, events ...*models.ChatEvent) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := in.Enqueue(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

// Run drains frames until ctx is done or Close is called. Queued frames
// are grouped into batches of at most batchSize, draining opportunistically
// so a burst arrives at Reconcile as one batch.
func (in *Intake) Run(ctx context.Context) {
	in.started.Store(true)
	defer close(in.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-in.stop:
			return
		case f := <-in.ch:
			batch := in.collect(f)
			if len(batch) == 0 {
				continue
			}
			if err := in.engine.Reconcile(ctx, batch); err != nil {
				logger.Error("reconcile_failed", "events", len(batch), "error", err)
			}
		}
	}
}

// collect decodes the first frame and opportunistically drains more
// until the queue is momentarily empty or the batch cap is hit.
func (in *Intake) collect(first *frame) []*models.ChatEvent {
	batch := make([]*models.ChatEvent, 0, in.batchSize)
	if ev := decodeFrame(first); ev != nil {
		batch = append(batch, ev)
	}
	for len(batch) < in.batchSize {
		select {
		case f := <-in.ch:
			if ev := decodeFrame(f); ev != nil {
				batch = append(batch, ev)
			}
		default:
			return batch
		}
	}
	return batch
}

func decodeFrame(f *frame) *models.ChatEvent {
	defer f.done()
	if len(f.payload) == 0 {
		return nil
	}
	var ev models.ChatEvent
	if err := json.Unmarshal(f.payload, &ev); err != nil {
		telemetry.IntakeDecodeErrors.Inc()
		logger.Warn("event_decode_failed", "error", err)
		return nil
	}
	return &ev
}

// Close stops the worker. Pending frames are released.
func (in *Intake) Close() {
	in.stopOnce.Do(func() {
		close(in.stop)
		if in.started.Load() {
			<-in.doneCh
		}
		for {
			select {
			case f := <-in.ch:
				f.done()
			default:
				return
			}
		}
	})
}

// Len returns the number of queued frames.
func (in *Intake) Len() int { return len(in.ch) }

// Cap returns the configured capacity.
func (in *Intake) Cap() int { return in.capacity }

// Dropped returns how many frames were dropped by a full queue or
// context cancellation during enqueue.
func (in *Intake) Dropped() uint64 { return atomic.LoadUint64(&in.dropped) }
