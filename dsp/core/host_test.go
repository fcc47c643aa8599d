package core

import (
	"errors"
	"testing"
)

func TestApplyHostOptions(t *testing.T) {
	cfg := ApplyHostOptions(WithSampleRate(96000), WithMaxBlockSize(2048), WithChannels(4))
	if cfg.SampleRate != 96000 {
		t.Fatalf("sample rate = %v, want 96000", cfg.SampleRate)
	}
	if cfg.MaxBlockSize != 2048 {
		t.Fatalf("block size = %d, want 2048", cfg.MaxBlockSize)
	}
	if cfg.Channels != 4 {
		t.Fatalf("channels = %d, want 4", cfg.Channels)
	}
}

func TestInvalidHostOptionsIgnored(t *testing.T) {
	cfg := ApplyHostOptions(WithSampleRate(0), WithMaxBlockSize(-1), WithChannels(0))
	def := DefaultHostConfig()
	if cfg != def {
		t.Fatalf("cfg = %#v, want %#v", cfg, def)
	}
}

func TestHostConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  HostConfig
		want error
	}{
		{name: "default", cfg: DefaultHostConfig()},
		{name: "zero rate", cfg: HostConfig{SampleRate: 0, MaxBlockSize: 64, Channels: 2}, want: ErrInvalidSampleRate},
		{name: "zero block", cfg: HostConfig{SampleRate: 44100, MaxBlockSize: 0, Channels: 2}, want: ErrInvalidBlockSize},
		{name: "no channels", cfg: HostConfig{SampleRate: 44100, MaxBlockSize: 64}, want: ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLatencyFunc(t *testing.T) {
	got := -1
	var r LatencyReporter = LatencyFunc(func(n int) { got = n })
	r.SetLatencySamples(4096)
	if got != 4096 {
		t.Fatalf("reported %d, want 4096", got)
	}
}
