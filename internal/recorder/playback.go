package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"main/internal/schema"
)

// Handler receives each replayed event in journal order.
type Handler func(ev schema.Event) error

// Clock abstracts waiting so playback pacing can be tested.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PlaybackConfig controls journal replay.
type PlaybackConfig struct {
	Dir        string
	FilePrefix string

	// Speed scales pacing between records. 1.0 replays in real time,
	// 0 disables pacing and replays as fast as possible.
	Speed float64

	DisableChecksum bool
	MaxPayloadSize  int

	Clock Clock
}

// Playback replays journal segments through a handler.
type Playback struct {
	cfg PlaybackConfig
}

// NewPlayback creates a replayer over the journal directory.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("invalid playback config: Dir is empty")
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = defaultFilePrefix
	}
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("invalid playback config: Speed must be >= 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Playback{cfg: cfg}, nil
}

// Run replays every record in segment order, pacing on the recorded
// receive timestamps.
func (p *Playback) Run(ctx context.Context, handler Handler) error {
	files, err := p.collectFiles()
	if err != nil {
		return err
	}

	var lastTs int64
	for _, path := range files {
		if err := p.replayFile(ctx, path, handler, &lastTs); err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) replayFile(ctx context.Context, path string, handler Handler, lastTs *int64) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, payload, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("replay %s: %w", filepath.Base(path), err)
		}

		if err := p.pace(ctx, header.TsRecv, lastTs); err != nil {
			return err
		}

		var ev schema.Event
		if err := sonic.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("replay %s seq %d: %w", filepath.Base(path), header.Seq, err)
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, ts int64, lastTs *int64) error {
	if p.cfg.Speed == 0 {
		*lastTs = ts
		return nil
	}
	if *lastTs != 0 && ts > *lastTs {
		gap := time.Duration(float64(ts-*lastTs) / p.cfg.Speed)
		if err := p.cfg.Clock.Sleep(ctx, gap); err != nil {
			return err
		}
	}
	*lastTs = ts
	return nil
}

func (p *Playback) collectFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, p.cfg.FilePrefix+"-") || !strings.HasSuffix(name, ".jnl") {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	sort.Strings(files)
	return files, nil
}
