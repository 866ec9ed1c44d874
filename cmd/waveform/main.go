// Package main renders the waveform of a local audio file to PNG, using the
// same envelope and renderer as the editor daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

func main() {
	out := flag.String("o", "", "output PNG path (default: input name with .png)")
	width := flag.Int("width", 1600, "image width in pixels")
	height := flag.Int("height", 200, "image height in pixels")
	resolution := flag.Int("resolution", waveform.DefaultResolution, "envelope blocks")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: waveform [flags] <audio-file>")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: logger.ParseLevel("info"), Format: "pretty"})

	path := flag.Arg(0)
	if *out == "" {
		*out = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("read audio", "error", err)
	}
	format := domain.ParseFormat(filepath.Ext(path))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	duration, err := media.ProbeDuration(ctx, data, format)
	if err != nil {
		log.Fatal("probe duration", "error", err)
	}

	var env *waveform.Envelope
	if waveform.Decodable(format) {
		env, err = waveform.Generate(ctx, data, format, *resolution)
		if err != nil {
			log.Fatal("generate envelope", "error", err)
		}
	} else {
		log.Warn("format has no decoder, drawing placeholder", "format", format)
		env = waveform.Synthetic(path, duration, *resolution)
	}

	renderer := waveform.NewRenderer(waveform.DefaultStyle)
	img := renderer.Render(waveform.Frame{
		Width:    *width,
		Height:   *height,
		Envelope: env,
		Duration: duration,
		Viewport: waveform.NewViewport(),
	})

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal("create output", "error", err)
	}
	if err := waveform.EncodePNG(f, img); err != nil {
		f.Close()
		log.Fatal("encode png", "error", err)
	}
	if err := f.Close(); err != nil {
		log.Fatal("write output", "error", err)
	}

	hash, err := renderer.BlurHash(env, duration)
	if err != nil {
		log.Warn("blurhash failed", "error", err)
	}

	fmt.Printf("\n=== Waveform ===\n")
	fmt.Printf("Format: %s\n", format)
	fmt.Printf("Duration: %.3fs\n", duration)
	fmt.Printf("Blocks: %d\n", env.Resolution())
	fmt.Printf("BlurHash: %s\n", hash)
	fmt.Printf("Written: %s\n", *out)
}
