// Package capture turns the raw microphone stream into fixed-size frames with
// a per-frame loudness reading.
package capture

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/domain/repositories"
)

// FrameSize is the number of samples per emitted frame. At 16kHz this is
// roughly 256ms of audio; smaller frames would cut latency at the cost of
// per-frame overhead.
const FrameSize = 4096

// Frame is one fixed-length window of captured samples plus its RMS loudness.
type Frame struct {
	Samples []float32
	RMS     float64
}

// Callbacks receive the pipeline output. OnVolume fires once per frame and is
// purely observational. OnFrame receives every frame regardless of loudness;
// silence suppression is the remote service's job.
type Callbacks struct {
	OnFrame  func(Frame)
	OnVolume func(float64)
}

// Pipeline rebuffers device deliveries, which arrive at whatever cadence the
// device uses, into exact FrameSize frames in capture order.
type Pipeline struct {
	device repositories.CaptureDevice
	cb     Callbacks
	logger *zap.Logger

	mu      sync.Mutex
	pending []float32
	started bool
}

// NewPipeline creates a pipeline over the given capture device.
func NewPipeline(device repositories.CaptureDevice, cb Callbacks, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		device: device,
		cb:     cb,
		logger: logger,
	}
}

// Start acquires the device and begins frame production. Frames keep flowing
// until Stop is called.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("capture pipeline already started")
	}
	p.started = true
	p.mu.Unlock()

	if err := p.device.Start(ctx, p.push); err != nil {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	p.logger.Info("Capture pipeline started",
		zap.Int("frameSize", FrameSize),
		zap.Int("sampleRate", 16000))
	return nil
}

// Stop releases the capture device. Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.pending = nil
	p.mu.Unlock()

	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// push is the device delivery callback. It slices accumulated samples into
// whole frames; a partial tail stays pending for the next delivery.
func (p *Pipeline) push(samples []float32) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, samples...)

	var frames [][]float32
	for len(p.pending) >= FrameSize {
		frame := make([]float32, FrameSize)
		copy(frame, p.pending[:FrameSize])
		p.pending = p.pending[FrameSize:]
		frames = append(frames, frame)
	}
	p.mu.Unlock()

	for _, samples := range frames {
		frame := Frame{Samples: samples, RMS: rms(samples)}
		if p.cb.OnVolume != nil {
			p.cb.OnVolume(frame.RMS)
		}
		if p.cb.OnFrame != nil {
			p.cb.OnFrame(frame)
		}
	}
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
