package serve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_ScanUnmarshal(t *testing.T) {
	input := `{"type":"scan","payload":{"content":"secret=abc123","source":"test"}}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(input), &req))
	assert.Equal(t, "scan", req.Type)

	var payload ScanPayload
	require.NoError(t, json.Unmarshal(req.Payload, &payload))
	assert.Equal(t, "secret=abc123", payload.Content)
	assert.Equal(t, "test", payload.Source)
}

func TestRequest_TargetsUnmarshal(t *testing.T) {
	input := `{"type":"scan_targets","payload":{"targets":["https://example.com","/etc/app.env"]}}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(input), &req))

	var payload TargetsPayload
	require.NoError(t, json.Unmarshal(req.Payload, &payload))
	assert.Equal(t, []string{"https://example.com", "/etc/app.env"}, payload.Targets)
	assert.False(t, payload.Text)
}

func TestResponse_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Response{Success: true, Type: "ready"})
	require.NoError(t, err)

	assert.Equal(t, `{"success":true,"type":"ready"}`, string(data))
}
