package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	var v struct {
		D Duration `json:"d"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"d":"24h"}`), &v))
	assert.Equal(t, 24*time.Hour, v.D.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"d":1000000000}`), &v))
	assert.Equal(t, time.Second, v.D.Duration)

	assert.Error(t, json.Unmarshal([]byte(`{"d":true}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"d":"notaduration"}`), &v))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(b))
}
