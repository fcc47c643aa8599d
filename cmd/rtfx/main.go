// Command rtfx renders an audio file through one of the real-time effects,
// block by block, exactly as a plugin host would drive it.
//
// Usage:
//
//	rtfx [flags] <in.wav|in.mp3> <out.wav>
//
// Examples:
//
//	rtfx -fx phase -stages 128 -freq 400 -spread 2 in.wav out.wav
//	rtfx -fx spectral -threshold -30 -ratio 4 -gain 6 in.mp3 out.wav
//	rtfx -fx spectral -mode sidechain-compress -sidechain kick.wav pad.wav out.wav
//
// Flag defaults can be overridden with RTFX_* environment variables, read
// from ./.env or the file named by RTFX_ENV_FILE.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cwbudde/algo-rtfx/dsp/core"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(os.Args[1:], os.Stderr, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.WithError(err).Error("rtfx failed")
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer, log *logrus.Logger) error {
	envFile := ".env"
	if v, ok := os.LookupEnv(envPrefix + "ENV_FILE"); ok {
		envFile = v
	}
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	cfg, files, err := parseFlags(args, os.LookupEnv, stderr)
	if err != nil {
		return err
	}
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if len(files) != 2 {
		return fmt.Errorf("expected an input and an output file, got %d arguments", len(files))
	}

	in, err := loadAudio(files[0])
	if err != nil {
		return err
	}

	var side *clip
	if cfg.sidechain != "" {
		if side, err = loadAudio(cfg.sidechain); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"input":       files[0],
		"sample_rate": in.sampleRate,
		"channels":    len(in.channels),
		"frames":      in.frames(),
		"sidechain":   cfg.sidechain,
	}).Info("loaded input")

	start := time.Now()
	out, err := render(cfg, in, side, log)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writeWAV(files[1], out, cfg.bitDepth); err != nil {
		return err
	}

	duration := float64(out.frames()) / float64(out.sampleRate)
	log.WithFields(logrus.Fields{
		"output":    files[1],
		"fx":        cfg.fx,
		"elapsed":   elapsed.Round(time.Millisecond),
		"realtime":  fmt.Sprintf("%.1fx", duration/elapsed.Seconds()),
		"peak_dbfs": fmt.Sprintf("%.1f", core.LinearToDB(out.peak())),
	}).Info("render complete")

	return nil
}
