// Package audio provides the raw linear PCM plumbing shared by the capture
// and playback paths: conversion between float samples and the 16-bit
// little-endian wire format, base64 transport encoding, and buffer
// concatenation.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const (
	// CaptureRate is the microphone sample rate expected by the remote service.
	CaptureRate = 16000
	// PlaybackRate is the sample rate of audio returned by the remote service.
	PlaybackRate = 24000
)

// EncodedChunk is the outbound wire unit: base64 PCM plus its declared rate.
type EncodedChunk struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// DecodeError reports an inbound payload whose length does not divide into
// whole 16-bit frames for the declared channel count.
type DecodeError struct {
	Len      int
	Channels int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("audio: %d bytes is not a whole number of 16-bit frames for %d channel(s)", e.Len, e.Channels)
}

// EncodeFrame converts float samples in [-1, 1] to a base64 encoded chunk of
// little-endian 16-bit PCM. Samples outside the legal range are clamped.
// Negative values scale by 32768 and non-negative by 32767 so the full signed
// 16-bit range is reachable.
func EncodeFrame(samples []float32, sampleRate int) EncodedChunk {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}
	return EncodedChunk{
		Data:     base64.StdEncoding.EncodeToString(raw),
		MimeType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
	}
}

// DecodeChunk reinterprets little-endian 16-bit PCM bytes as float samples in
// [-1, 1) and de-interleaves them into per-channel slices.
func DecodeChunk(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		channels = 1
	}
	if len(data)%(2*channels) != 0 {
		return nil, &DecodeError{Len: len(data), Channels: channels}
	}
	frames := len(data) / 2 / channels
	buf := NewBuffer(channels, frames, sampleRate)
	for ch := 0; ch < channels; ch++ {
		dst := buf.Channels[ch]
		for i := 0; i < frames; i++ {
			v := int16(binary.LittleEndian.Uint16(data[(i*channels+ch)*2:]))
			dst[i] = float32(v) / 32768.0
		}
	}
	return buf, nil
}
