// Package world loads world packs: the selectable themes plus the art and
// sound vocabularies the narrator may cue.
package world

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

//go:embed data/default.yaml
var defaultPack []byte

var ErrUnknownWorld = errors.New("unknown world")

// Ratings accepted for a world, mirroring film ratings.
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG13"
	RatingR    = "R"
)

// World is one selectable theme.
type World struct {
	Key            string `yaml:"key" json:"key"`
	Name           string `yaml:"name" json:"name"`
	Rating         string `yaml:"rating" json:"rating"`
	SystemPrompt   string `yaml:"system_prompt" json:"-"`
	OpeningCommand string `yaml:"opening_command" json:"-"`
	HelpText       string `yaml:"help_text" json:"-"`
}

// Pack is a set of worlds sharing one art and sound vocabulary.
type Pack struct {
	DefaultWorld string            `yaml:"default_world"`
	Worlds       []World           `yaml:"worlds"`
	Art          map[string]string `yaml:"art"`
	Sounds       map[string]string `yaml:"sounds"` // cue -> asset file
}

// Default returns the embedded world pack.
func Default() (*Pack, error) {
	return Load(defaultPack)
}

// Load parses and validates a YAML world pack.
func Load(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse world pack: %w", err)
	}
	for i := range p.Worlds {
		w := &p.Worlds[i]
		w.SystemPrompt = strings.TrimSpace(w.SystemPrompt)
		w.OpeningCommand = strings.TrimSpace(w.OpeningCommand)
		w.HelpText = strings.TrimSpace(w.HelpText)
	}
	for cue, art := range p.Art {
		p.Art[cue] = strings.TrimRight(art, "\n")
	}
	if errs := p.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid world pack:\n%s", strings.Join(errs, "\n"))
	}
	return &p, nil
}

// Validate returns every problem found in the pack.
func (p *Pack) Validate() []string {
	var errs []string
	if len(p.Worlds) == 0 {
		errs = append(errs, "at least one world is required")
	}
	seen := make(map[string]bool)
	for i, w := range p.Worlds {
		label := fmt.Sprintf("worlds[%d]", i)
		if w.Key == "" {
			errs = append(errs, label+": key is required")
		} else if !isValidKey(w.Key) {
			errs = append(errs, fmt.Sprintf("%s: key %q must be lowercase kebab-case", label, w.Key))
		}
		if seen[w.Key] {
			errs = append(errs, fmt.Sprintf("%s: duplicate key %q", label, w.Key))
		}
		seen[w.Key] = true
		if w.Name == "" {
			errs = append(errs, label+": name is required")
		}
		if w.SystemPrompt == "" {
			errs = append(errs, label+": system_prompt is required")
		}
		if w.OpeningCommand == "" {
			errs = append(errs, label+": opening_command is required")
		}
		if w.HelpText == "" {
			errs = append(errs, label+": help_text is required")
		}
		switch w.Rating {
		case "", RatingG, RatingPG, RatingPG13, RatingR:
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown rating %q", label, w.Rating))
		}
	}
	if p.DefaultWorld != "" && !seen[p.DefaultWorld] {
		errs = append(errs, fmt.Sprintf("default_world %q is not defined", p.DefaultWorld))
	}
	for cue, art := range p.Art {
		if !isValidKey(cue) || cue == string(narrative.VisualNone) {
			errs = append(errs, fmt.Sprintf("art: invalid cue %q", cue))
		}
		if strings.TrimSpace(art) == "" {
			errs = append(errs, fmt.Sprintf("art: cue %q has no art", cue))
		}
	}
	for cue := range p.Sounds {
		if !isValidKey(cue) || cue == string(narrative.SoundNone) {
			errs = append(errs, fmt.Sprintf("sounds: invalid cue %q", cue))
		}
	}
	sort.Strings(errs)
	return errs
}

// World returns the world with key.
func (p *Pack) World(key string) (World, error) {
	for _, w := range p.Worlds {
		if w.Key == key {
			return w, nil
		}
	}
	return World{}, fmt.Errorf("%w: %q", ErrUnknownWorld, key)
}

// Initial returns the default world, or the first one when none is set.
func (p *Pack) Initial() World {
	if w, err := p.World(p.DefaultWorld); err == nil {
		return w
	}
	return p.Worlds[0]
}

// Keys returns world keys in pack order.
func (p *Pack) Keys() []string {
	keys := make([]string, 0, len(p.Worlds))
	for _, w := range p.Worlds {
		keys = append(keys, w.Key)
	}
	return keys
}

// Next returns the world after key, wrapping around.
func (p *Pack) Next(key string) World {
	for i, w := range p.Worlds {
		if w.Key == key {
			return p.Worlds[(i+1)%len(p.Worlds)]
		}
	}
	return p.Initial()
}

// ArtFor returns the art for cue, or "" when there is none.
func (p *Pack) ArtFor(cue narrative.VisualCue) string {
	if cue == narrative.VisualNone {
		return ""
	}
	return p.Art[string(cue)]
}

// SoundAsset returns the asset file for cue, or "" when there is none.
func (p *Pack) SoundAsset(cue narrative.SoundCue) string {
	if cue == narrative.SoundNone {
		return ""
	}
	return p.Sounds[string(cue)]
}

// VisualCues returns the known art cues, sorted.
func (p *Pack) VisualCues() []narrative.VisualCue {
	cues := make([]narrative.VisualCue, 0, len(p.Art))
	for cue := range p.Art {
		cues = append(cues, narrative.VisualCue(cue))
	}
	sort.Slice(cues, func(i, j int) bool { return cues[i] < cues[j] })
	return cues
}

// SoundCues returns the known sound cues, sorted.
func (p *Pack) SoundCues() []narrative.SoundCue {
	cues := make([]narrative.SoundCue, 0, len(p.Sounds))
	for cue := range p.Sounds {
		cues = append(cues, narrative.SoundCue(cue))
	}
	sort.Slice(cues, func(i, j int) bool { return cues[i] < cues[j] })
	return cues
}

// NewValidator returns a response validator for this pack's cues.
func (p *Pack) NewValidator() *narrative.Validator {
	return narrative.NewValidator(p.VisualCues(), p.SoundCues())
}

func isValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "-") || strings.HasSuffix(key, "-") {
		return false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
