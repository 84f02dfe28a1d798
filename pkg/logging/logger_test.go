package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Level:       "info",
				Format:      "json",
				Output:      "stdout",
				ServiceName: "test-service",
				Version:     "1.0.0",
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			config: &Config{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "invalid",
				Output: "stdout",
			},
			wantErr: true,
		},
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&Config{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		ServiceName: "test-service",
		Version:     "1.0.0",
	})
	require.NoError(t, err)
	logger.SetOutput(&buf)

	ctx := WithCorrelationID(context.Background(), "corr-123")
	logger.WithContext(ctx).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-123", entry["correlation_id"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestLogger_KeyValuePairs(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(nil)
	require.NoError(t, err)
	logger.SetOutput(&buf)

	logger.Info("retrying", "attempt", 2, "delay", "10s")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "10s", entry["delay"])
}

func TestGetCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))

	id := NewCorrelationID()
	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, GetCorrelationID(ctx))
}

func TestStackTrace(t *testing.T) {
	trace := StackTrace()
	assert.Contains(t, trace, "goroutine")
	assert.Contains(t, trace, "TestStackTrace")
}
