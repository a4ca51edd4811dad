package audio

import "time"

// Buffer holds decoded float audio split per channel. All channel slices have
// the same length.
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// NewBuffer allocates a zeroed buffer of the given layout.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	chs := make([][]float32, channels)
	for i := range chs {
		chs[i] = make([]float32, frames)
	}
	return &Buffer{Channels: chs, SampleRate: sampleRate}
}

// Len returns the number of frames per channel.
func (b *Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Duration returns the playback time of the buffer at its sample rate.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.SampleRate)
}

// Concatenate joins sequential buffers into one. Nil entries are skipped; with
// no buffers left it returns nil, and a single remaining buffer is returned as
// is. The result takes the channel count and sample rate of the first present
// buffer. An input with fewer channels than the result contributes silence on
// the channels it lacks; it never fails.
func Concatenate(buffers []*Buffer) *Buffer {
	valid := buffers[:0:0]
	for _, b := range buffers {
		if b != nil {
			valid = append(valid, b)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	if len(valid) == 1 {
		return valid[0]
	}

	total := 0
	for _, b := range valid {
		total += b.Len()
	}
	out := NewBuffer(valid[0].NumChannels(), total, valid[0].SampleRate)
	for ch := range out.Channels {
		offset := 0
		for _, b := range valid {
			if ch < b.NumChannels() {
				copy(out.Channels[ch][offset:], b.Channels[ch])
			}
			offset += b.Len()
		}
	}
	return out
}
