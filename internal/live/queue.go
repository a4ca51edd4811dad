package live

import (
	"sync"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/repositories"
)

// outboundQueue buffers encoded capture frames until the live channel
// resolves, then flushes them in capture order. The channel handle is obtained
// asynchronously, so the first frames of a session are routinely produced
// before there is anywhere to send them; parking them here keeps them from
// being dropped and keeps ordering intact.
//
// The queue is bounded. On overflow a frame is dropped with a warning,
// preferring the oldest; under producer contention the incoming frame can lose
// instead. In practice the channel resolves long before the buffer fills.
type outboundQueue struct {
	frames chan audio.EncodedChunk
	logger *zap.Logger

	bindOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

func newOutboundQueue(capacity int, logger *zap.Logger) *outboundQueue {
	return &outboundQueue{
		frames: make(chan audio.EncodedChunk, capacity),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Push enqueues one frame. It never blocks the capture callback.
func (q *outboundQueue) Push(chunk audio.EncodedChunk) {
	select {
	case <-q.done:
		return
	default:
	}

	select {
	case q.frames <- chunk:
		return
	default:
	}

	// Full: evict the oldest frame to keep the stream as current as possible.
	select {
	case <-q.frames:
	default:
	}
	select {
	case q.frames <- chunk:
		q.logger.Warn("Outbound frame queue full, dropped oldest frame")
	default:
		// The freed slot was refilled before the re-push; the new frame
		// loses instead, and that deviation is worth its own warning.
		q.logger.Warn("Outbound frame queue full, dropping current frame")
	}
}

// Bind attaches the resolved channel and starts draining. Buffered frames are
// flushed first, in the order they were captured. Only the first Bind has any
// effect.
func (q *outboundQueue) Bind(ch repositories.RealtimeChannel, onSendError func(error)) {
	q.bindOnce.Do(func() {
		go func() {
			for {
				select {
				case <-q.done:
					return
				case chunk := <-q.frames:
					if err := ch.Send(chunk); err != nil {
						q.logger.Error("Failed to send outbound frame", zap.Error(err))
						if onSendError != nil {
							onSendError(err)
						}
						return
					}
				}
			}
		}()
	})
}

// Close stops the drain goroutine and makes further pushes no-ops.
func (q *outboundQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Len reports the number of frames currently parked.
func (q *outboundQueue) Len() int {
	return len(q.frames)
}
