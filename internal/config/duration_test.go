package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "go duration", input: "d: 1h30m", want: 90 * time.Minute},
		{name: "milliseconds", input: "d: 300ms", want: 300 * time.Millisecond},
		{name: "bare seconds", input: "d: 45", want: 45 * time.Second},
		{name: "empty string", input: `d: ""`, want: 0},
		{name: "null", input: "d: ~", want: 0},
		{name: "invalid", input: "d: later", wantErr: true},
		{name: "sequence", input: "d: [1s]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out struct {
				D Duration `yaml:"d"`
			}
			err := yaml.Unmarshal([]byte(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.D.Duration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"2s"`), &d))
	assert.Equal(t, 2*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`10`), &d))
	assert.Equal(t, 10*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Zero(t, d)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &d))

	out, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}

func TestDuration_MarshalYAML(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(map[string]Duration{"d": Duration(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m0s\n", string(out))
}
