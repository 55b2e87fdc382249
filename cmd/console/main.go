package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/adventure-console/internal/config"
	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/internal/logger"
	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/internal/services/events"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "adventure-console.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.SetupWriter(cfg, logFile)

	pack, err := world.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load world pack: %v\n", err)
		os.Exit(1)
	}

	narrator, err := services.NewNarrator(context.Background(), services.ProviderOptions{
		Provider: cfg.LLMProvider,
		Model:    cfg.ModelName,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.APIKey(),
		Timeout:  cfg.LLMTimeout,
	}, pack.NewValidator(), nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure narrator: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = narrator.Close()
	}()

	bridge := &programBridge{}
	publishers := game.MultiPublisher{game.PublisherFunc(bridge.publish)}

	// A console can mirror its session to Redis for an SSE viewer.
	if cfg.RedisURL != "" {
		redisSvc := services.NewRedisService(cfg.RedisURL, log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisSvc.Ping(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s: %v\n", cfg.RedisURL, err)
			os.Exit(1)
		}
		defer func() {
			_ = redisSvc.Close()
		}()
		publishers = append(publishers, events.NewBroadcaster(redisSvc.Client(), log))
	}

	// Frames and bells share one locked writer so a bell is never written
	// while the renderer is part way through a frame.
	out := newTTYOutput(os.Stdout)

	speed, _ := typewriter.ParseSpeed(cfg.TextSpeed)
	orch, err := game.New(game.Options{
		Generator: narrator.Generator,
		Worlds:    pack,
		Sound:     services.NewBellPlayer(out),
		Publisher: publishers,
		Preferences: game.Preferences{
			Muted:     cfg.Muted,
			TextSpeed: speed,
			World:     cfg.World,
		},
		Logger: log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start game: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Adventure Console",
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"world", orch.World().Key)

	p := tea.NewProgram(NewConsoleUI(orch, bridge, log),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	bridge.set(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// programBridge forwards messages from orchestrator and typewriter
// goroutines into the running program.
type programBridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *programBridge) set(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

// Send drops messages that arrive before the program exists.
func (b *programBridge) Send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (b *programBridge) publish(ctx context.Context, ev game.Event) error {
	b.Send(eventMsg{event: ev})
	return nil
}

// ttyOutput is the program's terminal with every write serialised. It
// embeds the file so the program still sees a terminal it can size and
// put into raw mode.
type ttyOutput struct {
	*os.File
	mu sync.Mutex
}

func newTTYOutput(f *os.File) *ttyOutput {
	return &ttyOutput{File: f}
}

func (o *ttyOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.File.Write(p)
}

func (o *ttyOutput) WriteString(s string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.File.WriteString(s)
}
