package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	Log("login-service", ActionLogin, "alice@example.com", "10.0.0.1", false, errors.New("invalid credentials"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["log_type"])
	assert.Equal(t, ActionLogin, entry["action"])
	assert.Equal(t, "alice@example.com", entry["user"])
	assert.Equal(t, "10.0.0.1", entry["target"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "invalid credentials", entry["error"])
}
