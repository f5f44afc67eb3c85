package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrAdapter(t *testing.T) {
	var lines []map[string]interface{}
	sink := funcr.NewJSON(func(obj string) {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(obj), &line))
		lines = append(lines, line)
	}, funcr.Options{Verbosity: 1})

	adapter := NewLogrAdapter(sink.WithName("watermill")).
		With(watermill.LogFields{"handler": "status_recorder"})

	adapter.Info("subscribed", watermill.LogFields{"topic": StatusTopic})
	adapter.Debug("message received", nil)
	adapter.Trace("message acked", nil)
	adapter.Error("handler failed", errors.New("database is locked"), watermill.LogFields{"retries": 3})

	require.Len(t, lines, 3, "trace is above the configured verbosity")

	assert.Equal(t, "watermill", lines[0]["logger"])
	assert.Equal(t, "subscribed", lines[0]["msg"])
	assert.Equal(t, StatusTopic, lines[0]["topic"])
	assert.Equal(t, "status_recorder", lines[0]["handler"])

	assert.Equal(t, "message received", lines[1]["msg"])
	assert.EqualValues(t, 1, lines[1]["level"])

	assert.Equal(t, "handler failed", lines[2]["msg"])
	assert.Equal(t, "database is locked", lines[2]["error"])
	assert.EqualValues(t, 3, lines[2]["retries"])
}
