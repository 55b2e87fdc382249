package narrative

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes why a narrator response was rejected.
type ValidationError struct {
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	return "invalid narrator response: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// wireResponse mirrors the JSON object the narrator emits. Pointers let
// validation tell a missing field from an empty one.
type wireResponse struct {
	Narrative  *string    `json:"narrative" validate:"required,min=1"`
	VisualCue  *string    `json:"visualCue" validate:"required,visualcue"`
	SoundCue   *string    `json:"soundCue" validate:"required,soundcue"`
	StateDelta *wireDelta `json:"stateDelta" validate:"required"`
}

type wireDelta struct {
	HealthChange json.RawMessage `json:"healthChange" validate:"-"`
	AddItem      *string         `json:"addItem" validate:"omitnil,min=1"`
	RemoveItem   *string         `json:"removeItem" validate:"omitnil,min=1"`
}

// Validator checks narrator output against a closed set of visual and
// sound cues.
type Validator struct {
	validate  *validator.Validate
	visuals   []VisualCue
	sounds    []SoundCue
	visualSet map[string]struct{}
	soundSet  map[string]struct{}
}

// NewValidator builds a Validator for the given cue vocabularies. The
// "none" cue is always accepted.
func NewValidator(visuals []VisualCue, sounds []SoundCue) *Validator {
	v := &Validator{
		visualSet: map[string]struct{}{string(VisualNone): {}},
		soundSet:  map[string]struct{}{string(SoundNone): {}},
	}
	for _, cue := range visuals {
		v.visualSet[string(cue)] = struct{}{}
	}
	for _, cue := range sounds {
		v.soundSet[string(cue)] = struct{}{}
	}
	for cue := range v.visualSet {
		v.visuals = append(v.visuals, VisualCue(cue))
	}
	for cue := range v.soundSet {
		v.sounds = append(v.sounds, SoundCue(cue))
	}
	sort.Slice(v.visuals, func(i, j int) bool { return v.visuals[i] < v.visuals[j] })
	sort.Slice(v.sounds, func(i, j int) bool { return v.sounds[i] < v.sounds[j] })

	v.validate = validator.New()
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.validate.RegisterValidation("visualcue", func(fl validator.FieldLevel) bool {
		_, ok := v.visualSet[fl.Field().String()]
		return ok
	})
	_ = v.validate.RegisterValidation("soundcue", func(fl validator.FieldLevel) bool {
		_, ok := v.soundSet[fl.Field().String()]
		return ok
	})
	return v
}

// VisualCues returns the accepted visual cues in sorted order.
func (v *Validator) VisualCues() []VisualCue {
	return append([]VisualCue(nil), v.visuals...)
}

// SoundCues returns the accepted sound cues in sorted order.
func (v *Validator) SoundCues() []SoundCue {
	return append([]SoundCue(nil), v.sounds...)
}

// Parse decodes raw narrator output into a StructuredResponse. Markdown code
// fences and prose around the JSON object are tolerated; anything that does
// not satisfy the response contract yields a *ValidationError.
func (v *Validator) Parse(raw []byte) (*StructuredResponse, error) {
	body := extractObject(raw)
	if len(body) == 0 {
		return nil, &ValidationError{Problems: []string{"response contains no JSON object"}, Err: ErrEmptyNarrative}
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &ValidationError{Problems: []string{"response is not a valid JSON object"}, Err: err}
	}
	return v.fromWire(wire)
}

// Validate checks an already-typed response against the same contract
// Parse enforces.
func (v *Validator) Validate(resp StructuredResponse) error {
	narrative := resp.Narrative
	visual := string(resp.VisualCue)
	sound := string(resp.SoundCue)
	wire := wireResponse{
		Narrative:  &narrative,
		VisualCue:  &visual,
		SoundCue:   &sound,
		StateDelta: &wireDelta{},
	}
	if resp.StateDelta.HealthChange != nil {
		wire.StateDelta.HealthChange = json.RawMessage(fmt.Sprintf("%d", *resp.StateDelta.HealthChange))
	}
	if resp.StateDelta.AddItem != "" {
		item := resp.StateDelta.AddItem
		wire.StateDelta.AddItem = &item
	}
	if resp.StateDelta.RemoveItem != "" {
		item := resp.StateDelta.RemoveItem
		wire.StateDelta.RemoveItem = &item
	}
	_, err := v.fromWire(wire)
	return err
}

func (v *Validator) fromWire(wire wireResponse) (*StructuredResponse, error) {
	var problems []string
	var cause error
	if err := v.validate.Struct(wire); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &ValidationError{Problems: []string{err.Error()}, Err: err}
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
		cause = err
		if wire.Narrative != nil && *wire.Narrative == "" {
			cause = ErrEmptyNarrative
		}
	}

	var health *int
	if wire.StateDelta != nil {
		h, err := parseHealthChange(wire.StateDelta.HealthChange)
		if err != nil {
			problems = append(problems, err.Error())
			if cause == nil {
				cause = err
			}
		}
		health = h
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems, Err: cause}
	}

	resp := &StructuredResponse{
		Narrative: *wire.Narrative,
		VisualCue: VisualCue(*wire.VisualCue),
		SoundCue:  SoundCue(*wire.SoundCue),
		StateDelta: StateDelta{
			HealthChange: health,
		},
	}
	if wire.StateDelta.AddItem != nil {
		resp.StateDelta.AddItem = *wire.StateDelta.AddItem
	}
	if wire.StateDelta.RemoveItem != nil {
		resp.StateDelta.RemoveItem = *wire.StateDelta.RemoveItem
	}
	return resp, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "visualcue", "soundcue":
		return fmt.Sprintf("%s has unknown value %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// parseHealthChange accepts any finite integral JSON number. Values outside
// the int range saturate since health is clamped downstream anyway.
func parseHealthChange(raw json.RawMessage) (*int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '"' {
		return nil, errors.New("stateDelta.healthChange must be a number")
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return nil, errors.New("stateDelta.healthChange must be a number")
	}
	if i, err := num.Int64(); err == nil {
		n := int(i)
		return &n, nil
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, errors.New("stateDelta.healthChange must be finite")
	}
	if f != math.Trunc(f) {
		return nil, errors.New("stateDelta.healthChange must be an integer")
	}

	var n int
	switch {
	case f >= math.MaxInt64:
		n = math.MaxInt
	case f <= math.MinInt64:
		n = math.MinInt
	default:
		n = int(f)
	}
	return &n, nil
}

// extractObject strips code fences and surrounding prose, returning the
// outermost {...} span.
func extractObject(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if bytes.HasPrefix(body, []byte("```")) {
		if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		body = bytes.TrimSuffix(bytes.TrimSpace(body), []byte("```"))
		body = bytes.TrimSpace(body)
	}
	if len(body) > 0 && body[0] == '{' {
		return body
	}
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return body
	}
	return body[start : end+1]
}
