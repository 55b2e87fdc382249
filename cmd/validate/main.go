package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/adventure-console/pkg/world"
)

const usage = `Usage: %s <world-pack.yaml|default> [response.json ...]

Validates a world pack and, optionally, narrator responses against the
pack's visual and sound cues. Use "default" to check the embedded pack.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintf(stderr, usage, filepath.Base(args[0]))
		return 1
	}

	pack, err := loadPack(args[1], stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Validation failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "World pack is valid! (%d worlds, %d art cues, %d sound cues)\n",
		len(pack.Worlds), len(pack.Art), len(pack.Sounds))

	validator := pack.NewValidator()
	failed := 0
	for _, filename := range args[2:] {
		fmt.Fprintf(stdout, "Validating %s...\n", filename)
		data, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read file %s: %v\n", filename, err)
			failed++
			continue
		}
		resp, err := validator.Parse(data)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", filename, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "  ok: visual=%s sound=%s delta=%s\n", resp.VisualCue, resp.SoundCue, describeDelta(resp.StateDelta.HealthChange, resp.StateDelta.AddItem, resp.StateDelta.RemoveItem))
	}

	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d responses failed validation\n", failed, len(args)-2)
		return 1
	}
	return 0
}

func loadPack(path string, stdout io.Writer) (*world.Pack, error) {
	if path == "default" {
		fmt.Fprintln(stdout, "Validating embedded world pack...")
		return world.Default()
	}

	fmt.Fprintf(stdout, "Validating %s...\n", path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("world pack must have a .yaml extension: %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return world.Load(data)
}

func describeDelta(health *int, add, remove string) string {
	var parts []string
	if health != nil {
		parts = append(parts, fmt.Sprintf("health%+d", *health))
	}
	if add != "" {
		parts = append(parts, "+"+add)
	}
	if remove != "" {
		parts = append(parts, "-"+remove)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
