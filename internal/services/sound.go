package services

import (
	"io"
	"log/slog"
	"sync"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// BellPlayer rings the terminal bell for every cue.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBellPlayer(out io.Writer) *BellPlayer {
	return &BellPlayer{out: out}
}

func (p *BellPlayer) Play(cue narrative.SoundCue) {
	if cue == narrative.SoundNone {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, "\a")
}

// LogPlayer records cues in the log along with the asset they map to.
// Headless deployments use it in place of audio.
type LogPlayer struct {
	assets func(narrative.SoundCue) string
	logger *slog.Logger
}

func NewLogPlayer(assets func(narrative.SoundCue) string, logger *slog.Logger) *LogPlayer {
	return &LogPlayer{assets: assets, logger: logger}
}

func (p *LogPlayer) Play(cue narrative.SoundCue) {
	if cue == narrative.SoundNone {
		return
	}
	asset := ""
	if p.assets != nil {
		asset = p.assets(cue)
	}
	p.logger.Info("Playing sound", "cue", cue, "asset", asset)
}
