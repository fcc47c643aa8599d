package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/algo-rtfx/dsp/effects/dynamics"
	"github.com/cwbudde/algo-rtfx/dsp/effects/phase"
	"github.com/cwbudde/algo-rtfx/dsp/stft"
	"github.com/joho/godotenv"
)

const envPrefix = "RTFX_"

type config struct {
	fx         string
	blockSize  int
	sidechain  string
	verbose    bool
	compensate bool
	bitDepth   int

	// phase rotator
	stages      int
	frequencyHz float64
	resonance   float64
	spread      float64
	style       string
	precision   float64

	// spectral compressor
	windowOrder  int
	overlapOrder int
	mode         string
	thresholdDB  float64
	ratio        float64
	upwardRatio  float64
	kneeDB       float64
	attackMs     float64
	releaseMs    float64
	gainDB       float64
	mix          float64
	dcFilter     bool
}

// loadEnvFile merges path into the process environment. A missing file is
// not an error; variables already set take precedence.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// envDefaults reads RTFX_* variables through lookup. The first malformed
// value is reported by err.
type envDefaults struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envDefaults) stringVal(name, fallback string) string {
	if v, ok := e.lookup(envPrefix + name); ok && v != "" {
		return v
	}
	return fallback
}

func (e *envDefaults) intVal(name string, fallback int) int {
	v, ok := e.lookup(envPrefix + name)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, v, err)
		return fallback
	}
	return n
}

func (e *envDefaults) floatVal(name string, fallback float64) float64 {
	v, ok := e.lookup(envPrefix + name)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, v, err)
		return fallback
	}
	return f
}

func (e *envDefaults) boolVal(name string, fallback bool) bool {
	v, ok := e.lookup(envPrefix + name)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, v, err)
		return fallback
	}
	return b
}

func (e *envDefaults) fail(name, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s=%q: %w", envPrefix, name, value, err)
	}
}

// parseFlags parses args with defaults taken from the environment and
// returns the remaining positional arguments.
func parseFlags(args []string, lookup func(string) (string, bool), output io.Writer) (config, []string, error) {
	env := &envDefaults{lookup: lookup}
	fs := flag.NewFlagSet("rtfx", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: rtfx [flags] <in.wav|in.mp3> <out.wav>\n\n")
		fmt.Fprintf(output, "Renders a file through the phase rotator or the spectral compressor.\n")
		fmt.Fprintf(output, "Flag defaults can be set with %s* variables or a .env file.\n\n", envPrefix)
		fs.PrintDefaults()
	}

	var cfg config
	fs.StringVar(&cfg.fx, "fx", env.stringVal("FX", "phase"), "effect: phase|spectral")
	fs.IntVar(&cfg.blockSize, "block", env.intVal("BLOCK", 512), "host block size in samples")
	fs.StringVar(&cfg.sidechain, "sidechain", env.stringVal("SIDECHAIN", ""), "sidechain WAV or MP3 for the spectral compressor")
	fs.BoolVar(&cfg.verbose, "v", env.boolVal("VERBOSE", false), "debug logging")
	fs.BoolVar(&cfg.compensate, "compensate", env.boolVal("COMPENSATE", true), "remove the reported latency from the output")
	fs.IntVar(&cfg.bitDepth, "bits", env.intVal("BITS", 24), "output bit depth: 16|24")

	fs.IntVar(&cfg.stages, "stages", env.intVal("STAGES", 32), "phase: all-pass stages")
	fs.Float64Var(&cfg.frequencyHz, "freq", env.floatVal("FREQUENCY", phase.DefaultFrequencyHz), "phase: center frequency in Hz")
	fs.Float64Var(&cfg.resonance, "resonance", env.floatVal("RESONANCE", phase.DefaultResonance), "phase: stage Q")
	fs.Float64Var(&cfg.spread, "spread", env.floatVal("SPREAD", 0), "phase: spread in octaves")
	fs.StringVar(&cfg.style, "style", env.stringVal("STYLE", "octaves"), "phase: spread style octaves|linear")
	fs.Float64Var(&cfg.precision, "precision", env.floatVal("PRECISION", -1), "phase: automation precision in [0, 1] (default 128-sample steps)")

	fs.IntVar(&cfg.windowOrder, "window-order", env.intVal("WINDOW_ORDER", stft.DefaultWindowOrder), "spectral: window size order")
	fs.IntVar(&cfg.overlapOrder, "overlap-order", env.intVal("OVERLAP_ORDER", stft.DefaultOverlapOrder), "spectral: overlap order")
	fs.StringVar(&cfg.mode, "mode", env.stringVal("MODE", dynamics.Internal.String()), "spectral: internal|sidechain-match|sidechain-compress")
	fs.Float64Var(&cfg.thresholdDB, "threshold", env.floatVal("THRESHOLD", dynamics.DefaultThresholdDB), "spectral: threshold in dB")
	fs.Float64Var(&cfg.ratio, "ratio", env.floatVal("RATIO", dynamics.DefaultDownwardRatio), "spectral: downward ratio")
	fs.Float64Var(&cfg.upwardRatio, "upward-ratio", env.floatVal("UPWARD_RATIO", dynamics.DefaultUpwardRatio), "spectral: upward ratio")
	fs.Float64Var(&cfg.kneeDB, "knee", env.floatVal("KNEE", dynamics.DefaultKneeDB), "spectral: knee width in dB")
	fs.Float64Var(&cfg.attackMs, "attack", env.floatVal("ATTACK", dynamics.DefaultAttackMs), "spectral: attack in ms")
	fs.Float64Var(&cfg.releaseMs, "release", env.floatVal("RELEASE", dynamics.DefaultReleaseMs), "spectral: release in ms")
	fs.Float64Var(&cfg.gainDB, "gain", env.floatVal("GAIN", 0), "spectral: output gain in dB")
	fs.Float64Var(&cfg.mix, "mix", env.floatVal("MIX", 1), "spectral: dry/wet mix in [0, 1]")
	fs.BoolVar(&cfg.dcFilter, "dc-filter", env.boolVal("DC_FILTER", false), "spectral: discard bins below 20 Hz")

	if env.err != nil {
		return config{}, nil, env.err
	}
	if err := fs.Parse(args); err != nil {
		return config{}, nil, err
	}
	if err := cfg.validate(); err != nil {
		return config{}, nil, err
	}

	return cfg, fs.Args(), nil
}

func (c config) validate() error {
	switch c.fx {
	case "phase", "spectral":
	default:
		return fmt.Errorf("unknown effect %q", c.fx)
	}
	if c.blockSize <= 0 {
		return fmt.Errorf("block size must be > 0: %d", c.blockSize)
	}
	if c.bitDepth != 16 && c.bitDepth != 24 {
		return fmt.Errorf("bit depth must be 16 or 24: %d", c.bitDepth)
	}
	if c.sidechain != "" && c.fx != "spectral" {
		return errors.New("a sidechain is only used by the spectral compressor")
	}
	return nil
}
