package narrative

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator() *Validator {
	return NewValidator(
		[]VisualCue{"castle", "dragon"},
		[]SoundCue{"sword", "door"},
	)
}

func intPtr(i int) *int { return &i }

func TestValidator_Parse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *StructuredResponse
		wantErr bool
	}{
		{
			name: "full response",
			raw:  `{"narrative":"You enter the hall.","visualCue":"castle","soundCue":"door","stateDelta":{"healthChange":-10,"addItem":"torch","removeItem":"key"}}`,
			want: &StructuredResponse{
				Narrative:  "You enter the hall.",
				VisualCue:  "castle",
				SoundCue:   "door",
				StateDelta: StateDelta{HealthChange: intPtr(-10), AddItem: "torch", RemoveItem: "key"},
			},
		},
		{
			name: "empty state delta",
			raw:  `{"narrative":"Nothing happens.","visualCue":"none","soundCue":"none","stateDelta":{}}`,
			want: &StructuredResponse{Narrative: "Nothing happens.", VisualCue: VisualNone, SoundCue: SoundNone},
		},
		{
			name: "explicit nulls are absent",
			raw:  `{"narrative":"Quiet.","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":null,"addItem":null}}`,
			want: &StructuredResponse{Narrative: "Quiet.", VisualCue: VisualNone, SoundCue: SoundNone},
		},
		{
			name: "zero health change is kept",
			raw:  `{"narrative":"A scratch.","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":0}}`,
			want: &StructuredResponse{Narrative: "A scratch.", VisualCue: VisualNone, SoundCue: SoundNone, StateDelta: StateDelta{HealthChange: intPtr(0)}},
		},
		{
			name: "integral float accepted",
			raw:  `{"narrative":"Healed.","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":5.0}}`,
			want: &StructuredResponse{Narrative: "Healed.", VisualCue: VisualNone, SoundCue: SoundNone, StateDelta: StateDelta{HealthChange: intPtr(5)}},
		},
		{
			name: "code fence stripped",
			raw:  "```json\n{\"narrative\":\"Fog rolls in.\",\"visualCue\":\"none\",\"soundCue\":\"none\",\"stateDelta\":{}}\n```",
			want: &StructuredResponse{Narrative: "Fog rolls in.", VisualCue: VisualNone, SoundCue: SoundNone},
		},
		{
			name: "surrounding prose stripped",
			raw:  `Here you go: {"narrative":"A dragon!","visualCue":"dragon","soundCue":"none","stateDelta":{}} Enjoy.`,
			want: &StructuredResponse{Narrative: "A dragon!", VisualCue: "dragon", SoundCue: SoundNone},
		},
		{name: "missing narrative", raw: `{"visualCue":"none","soundCue":"none","stateDelta":{}}`, wantErr: true},
		{name: "empty narrative", raw: `{"narrative":"","visualCue":"none","soundCue":"none","stateDelta":{}}`, wantErr: true},
		{
			name: "whitespace is kept as sent",
			raw:  `{"narrative":"  You wake.\n","visualCue":"none","soundCue":"none","stateDelta":{"addItem":" torch ","removeItem":"  "}}`,
			want: &StructuredResponse{
				Narrative:  "  You wake.\n",
				VisualCue:  VisualNone,
				SoundCue:   SoundNone,
				StateDelta: StateDelta{AddItem: " torch ", RemoveItem: "  "},
			},
		},
		{name: "blank narrative", raw: `{"narrative":"   ","visualCue":"none","soundCue":"none","stateDelta":{}}`, want: &StructuredResponse{Narrative: "   ", VisualCue: VisualNone, SoundCue: SoundNone}},
		{name: "missing state delta", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none"}`, wantErr: true},
		{name: "missing sound cue", raw: `{"narrative":"Hi","visualCue":"none","stateDelta":{}}`, wantErr: true},
		{name: "unknown visual cue", raw: `{"narrative":"Hi","visualCue":"spaceship","soundCue":"none","stateDelta":{}}`, wantErr: true},
		{name: "unknown sound cue", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"explosion","stateDelta":{}}`, wantErr: true},
		{name: "cue case matters", raw: `{"narrative":"Hi","visualCue":"Castle","soundCue":"none","stateDelta":{}}`, wantErr: true},
		{name: "fractional health", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":2.5}}`, wantErr: true},
		{name: "string health", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":"5"}}`, wantErr: true},
		{name: "boolean health", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":true}}`, wantErr: true},
		{name: "empty add item", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none","stateDelta":{"addItem":""}}`, wantErr: true},
		{name: "empty remove item", raw: `{"narrative":"Hi","visualCue":"none","soundCue":"none","stateDelta":{"removeItem":""}}`, wantErr: true},
		{name: "not json", raw: `The narrator is speechless.`, wantErr: true},
		{name: "empty body", raw: ``, wantErr: true},
		{name: "json array", raw: `[1,2,3]`, wantErr: true},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Parse([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_ParseBlankNarrativeWrapsSentinel(t *testing.T) {
	_, err := testValidator().Parse([]byte(`{"narrative":"","visualCue":"none","soundCue":"none","stateDelta":{}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyNarrative))
}

func TestValidator_ParseLargeHealthSaturates(t *testing.T) {
	got, err := testValidator().Parse([]byte(`{"narrative":"Boom.","visualCue":"none","soundCue":"none","stateDelta":{"healthChange":-1e30}}`))
	require.NoError(t, err)
	require.NotNil(t, got.StateDelta.HealthChange)
	assert.Equal(t, math.MinInt, *got.StateDelta.HealthChange)
}

func TestValidator_Validate(t *testing.T) {
	v := testValidator()

	ok := StructuredResponse{Narrative: "Fine.", VisualCue: "castle", SoundCue: "sword", StateDelta: StateDelta{HealthChange: intPtr(3)}}
	assert.NoError(t, v.Validate(ok))

	bad := ok
	bad.VisualCue = "moon"
	assert.Error(t, v.Validate(bad))

	empty := ok
	empty.Narrative = ""
	assert.ErrorIs(t, v.Validate(empty), ErrEmptyNarrative)
}

func TestValidator_CueLists(t *testing.T) {
	v := testValidator()
	assert.Equal(t, []VisualCue{"castle", "dragon", "none"}, v.VisualCues())
	assert.Equal(t, []SoundCue{"door", "none", "sword"}, v.SoundCues())
}

func TestStateDelta_IsEmpty(t *testing.T) {
	assert.True(t, StateDelta{}.IsEmpty())
	assert.False(t, StateDelta{HealthChange: intPtr(0)}.IsEmpty())
	assert.False(t, StateDelta{AddItem: "rope"}.IsEmpty())
}
