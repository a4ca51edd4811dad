package repositories

import (
	"context"
	"time"

	"github.com/voxlate/voxlate/audio"
)

// CaptureDevice abstracts the microphone. Start acquires the device and
// begins delivering mono float samples at audio.CaptureRate through the
// callback at the device's own buffering cadence; delivery sizes are not
// guaranteed to match the session's frame size. Stop releases the device and
// is safe to call more than once.
type CaptureDevice interface {
	Start(ctx context.Context, deliver func(samples []float32)) error
	Stop() error
}

// PlaybackDevice abstracts the output audio device. PlayAt commits a buffer
// to begin at the given time on the device clock; buffers already committed
// are not recalled. Close releases the device.
type PlaybackDevice interface {
	PlayAt(buf *audio.Buffer, at time.Time) error
	Close() error
}
