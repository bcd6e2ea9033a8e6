package overrides

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  Settings
	}{
		{
			name:  "nil input yields empty settings",
			input: nil,
			want:  Settings{},
		},
		{
			name: "keeps allow-listed well-typed values",
			input: map[string]any{
				KeyUITheme:               "dark",
				KeyZipIncludeEvidence:    false,
				KeyDocxIncludeEvidence:   true,
				KeyEvidenceRetentionDays: float64(90),
			},
			want: Settings{
				KeyUITheme:               "dark",
				KeyZipIncludeEvidence:    false,
				KeyDocxIncludeEvidence:   true,
				KeyEvidenceRetentionDays: 90,
			},
		},
		{
			name: "drops reserved and unknown keys",
			input: map[string]any{
				"jwt_secret_key":    "leak",
				"postgres_password": "leak",
				"redis_url":         "redis://",
				"favourite_colour":  "blue",
			},
			want: Settings{},
		},
		{
			name: "drops ill-typed values",
			input: map[string]any{
				KeyUITheme:               "sepia",
				KeyZipIncludeEvidence:    "false",
				KeyEvidenceRetentionDays: 12.5,
			},
			want: Settings{},
		},
		{
			name: "retention bounds are inclusive",
			input: map[string]any{
				KeyEvidenceRetentionDays: 3650,
			},
			want: Settings{KeyEvidenceRetentionDays: 3650},
		},
		{
			name: "retention outside bounds is dropped",
			input: map[string]any{
				KeyEvidenceRetentionDays: json.Number("0"),
			},
			want: Settings{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.input))
		})
	}
}

func TestSettingsEqual(t *testing.T) {
	assert.True(t, Settings{"a": 30}.Equal(Settings{"a": float64(30)}))
	assert.True(t, Settings(nil).Equal(Settings{}))
	assert.False(t, Settings{"a": true}.Equal(Settings{"a": false}))
}
