package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		set     ScoreSet
		wantErr bool
	}{
		{
			name: "all active in range",
			set: ScoreSet{
				AI:       Score{Value: 8.5, Active: true},
				Research: Score{Value: 0.0, Active: true},
				Esoteric: Score{Value: 10.0, Active: true},
				Jarvis:   Score{Value: 5.5, Active: true},
			},
		},
		{
			name: "inactive out-of-range value is ignored",
			set: ScoreSet{
				AI:       Score{Value: 42.0, Active: false},
				Research: Score{Value: 7.0, Active: true},
				Esoteric: Score{Value: 7.0, Active: true},
				Jarvis:   Score{Value: 7.0, Active: true},
			},
		},
		{
			name: "active above range rejected",
			set: ScoreSet{
				AI:       Score{Value: 10.01, Active: true},
				Research: Score{Value: 7.0, Active: true},
			},
			wantErr: true,
		},
		{
			name: "active negative rejected",
			set: ScoreSet{
				Research: Score{Value: -0.1, Active: true},
			},
			wantErr: true,
		},
		{
			name: "NaN rejected",
			set: ScoreSet{
				Jarvis: Score{Value: math.NaN(), Active: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScoreSet_Effective_BaselineSubstitution(t *testing.T) {
	set := ScoreSet{
		AI:       Score{Value: 8.0, Active: true},
		Research: Score{Value: 9.9, Active: false},
	}

	assert.Equal(t, 8.0, set.Effective(AI, 5.0))
	assert.Equal(t, 5.0, set.Effective(Research, 5.0), "inactive engine contributes the baseline, never its raw value")
}

func TestScoreSet_GetSet(t *testing.T) {
	var set ScoreSet
	for i, name := range All {
		set.Set(name, Score{Value: float64(i), Active: true})
	}
	for i, name := range All {
		assert.Equal(t, float64(i), set.Get(name).Value)
	}
}

func TestScoreSet_CollectReasons_PrefixesEngine(t *testing.T) {
	set := ScoreSet{
		AI:       Score{Value: 8, Active: true, Reasons: []Reason{{Code: "model_edge", Text: "ensemble likes the under"}}},
		Esoteric: Score{Value: 7, Active: true, Reasons: []Reason{{Code: "numerology", Text: "life path alignment"}}},
	}

	reasons := set.CollectReasons()
	require.Len(t, reasons, 2)
	assert.Equal(t, "ai.model_edge", reasons[0].Code)
	assert.Equal(t, "esoteric.numerology", reasons[1].Code)
}
