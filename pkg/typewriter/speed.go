package typewriter

import (
	"fmt"
	"strings"
	"time"
)

// Speed is the player's text speed preference.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

var proseDelays = map[Speed]time.Duration{
	SpeedSlow:   50 * time.Millisecond,
	SpeedNormal: 25 * time.Millisecond,
	SpeedFast:   10 * time.Millisecond,
}

// Art is revealed much faster than prose at every speed.
var artDelays = map[Speed]time.Duration{
	SpeedSlow:   6 * time.Millisecond,
	SpeedNormal: 3 * time.Millisecond,
	SpeedFast:   1 * time.Millisecond,
}

// ParseSpeed converts a configured speed name, case-insensitively.
func ParseSpeed(s string) (Speed, error) {
	speed := Speed(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := proseDelays[speed]; !ok {
		return "", fmt.Errorf("unknown text speed %q (want slow, normal, or fast)", s)
	}
	return speed, nil
}

// Delay returns the per-character delay for prose or art at this speed.
// Unknown speeds fall back to normal.
func (s Speed) Delay(art bool) time.Duration {
	delays := proseDelays
	if art {
		delays = artDelays
	}
	if d, ok := delays[s]; ok {
		return d
	}
	return delays[SpeedNormal]
}

// Next cycles slow -> normal -> fast -> slow.
func (s Speed) Next() Speed {
	switch s {
	case SpeedSlow:
		return SpeedNormal
	case SpeedNormal:
		return SpeedFast
	default:
		return SpeedSlow
	}
}
