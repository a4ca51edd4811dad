package gateway

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/voxlate/voxlate/audio"
)

// browserMic adapts binary microphone frames from the websocket into a
// capture device. The browser samples at the capture rate and ships raw
// little-endian float32, so frames pass straight through to the pipeline.
type browserMic struct {
	mu      sync.Mutex
	deliver func([]float32)
}

func (m *browserMic) Start(_ context.Context, deliver func([]float32)) error {
	m.mu.Lock()
	m.deliver = deliver
	m.mu.Unlock()
	return nil
}

func (m *browserMic) Stop() error {
	m.mu.Lock()
	m.deliver = nil
	m.mu.Unlock()
	return nil
}

// push decodes one binary frame and forwards it. Frames arriving while no
// session runs are dropped. A trailing partial sample is truncated.
func (m *browserMic) push(data []byte) {
	m.mu.Lock()
	deliver := m.deliver
	m.mu.Unlock()
	if deliver == nil {
		return
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	deliver(samples)
}

// browserSpeaker relays scheduled playback buffers to the browser. The
// server-side schedule is preserved by shipping each buffer with the delay
// remaining until its start time.
type browserSpeaker struct {
	send func(interface{}) bool
	clk  clock.Clock
}

func (s *browserSpeaker) PlayAt(buf *audio.Buffer, start time.Time) error {
	if buf == nil || buf.NumChannels() == 0 {
		return nil
	}
	delay := start.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	chunk := audio.EncodeFrame(buf.Channels[0], buf.SampleRate)
	s.send(audioMessage{
		Type:       msgAudio,
		Data:       chunk.Data,
		MimeType:   chunk.MimeType,
		SampleRate: buf.SampleRate,
		DelayMs:    delay.Milliseconds(),
	})
	return nil
}

func (s *browserSpeaker) Close() error {
	return nil
}
