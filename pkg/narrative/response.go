package narrative

import "errors"

// VisualCue names a piece of ASCII art the narrator wants shown after its prose.
type VisualCue string

// SoundCue names a sound effect the narrator wants played with its prose.
type SoundCue string

const (
	VisualNone VisualCue = "none"
	SoundNone  SoundCue  = "none"
)

var ErrEmptyNarrative = errors.New("narrative is empty")

// StateDelta is the change to player state requested by a narrator turn.
// An empty AddItem or RemoveItem means the field was absent.
type StateDelta struct {
	HealthChange *int   `json:"healthChange,omitempty"`
	AddItem      string `json:"addItem,omitempty"`
	RemoveItem   string `json:"removeItem,omitempty"`
}

// IsEmpty reports whether the delta requests no change at all.
func (d StateDelta) IsEmpty() bool {
	return d.HealthChange == nil && d.AddItem == "" && d.RemoveItem == ""
}

// StructuredResponse is one validated narrator turn.
type StructuredResponse struct {
	Narrative  string     `json:"narrative"`
	VisualCue  VisualCue  `json:"visualCue"`
	SoundCue   SoundCue   `json:"soundCue"`
	StateDelta StateDelta `json:"stateDelta"`
}
