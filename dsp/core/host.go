package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite sample rates.
	ErrInvalidSampleRate = errors.New("sample rate must be > 0 and finite")
	// ErrInvalidBlockSize is returned for a non-positive maximum block size.
	ErrInvalidBlockSize = errors.New("max block size must be > 0")
	// ErrInvalidChannels is returned for a non-positive channel count.
	ErrInvalidChannels = errors.New("channel count must be > 0")
)

// HostConfig is what a host hands a processor before the first block:
// sample rate, largest block it will ever deliver, and main bus width.
type HostConfig struct {
	SampleRate   float64
	MaxBlockSize int
	Channels     int
}

// HostOption mutates a HostConfig.
type HostOption func(*HostConfig)

// DefaultHostConfig returns a stereo 48 kHz layout with 1024-sample blocks.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		SampleRate:   48000,
		MaxBlockSize: 1024,
		Channels:     2,
	}
}

// WithSampleRate sets the host sample rate.
func WithSampleRate(sampleRate float64) HostOption {
	return func(cfg *HostConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithMaxBlockSize sets the largest block the host will deliver.
func WithMaxBlockSize(blockSize int) HostOption {
	return func(cfg *HostConfig) {
		if blockSize > 0 {
			cfg.MaxBlockSize = blockSize
		}
	}
}

// WithChannels sets the main bus channel count.
func WithChannels(channels int) HostOption {
	return func(cfg *HostConfig) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// ApplyHostOptions applies zero or more options to the default config.
func ApplyHostOptions(opts ...HostOption) HostConfig {
	cfg := DefaultHostConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate reports the first invalid field of cfg.
func (cfg HostConfig) Validate() error {
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) || math.IsInf(cfg.SampleRate, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if cfg.MaxBlockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, cfg.MaxBlockSize)
	}
	if cfg.Channels <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannels, cfg.Channels)
	}
	return nil
}

// LatencyReporter receives a processor's latency in samples. Processors call
// it from the audio thread before the first block that uses a new
// configuration, so implementations must not block.
type LatencyReporter interface {
	SetLatencySamples(samples int)
}

// LatencyFunc adapts a plain function to LatencyReporter.
type LatencyFunc func(samples int)

// SetLatencySamples calls f(samples).
func (f LatencyFunc) SetLatencySamples(samples int) {
	f(samples)
}
