package resolver

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolve_LastWriteWins(t *testing.T) {
	tests := []struct {
		name     string
		local    Payload
		remote   Payload
		expected string
	}{
		{
			name:     "remote is newer",
			local:    Payload{"value": "local", "timestamp": "2024-01-15T10:00:00Z"},
			remote:   Payload{"value": "remote", "timestamp": "2024-01-15T11:00:00Z"},
			expected: "remote",
		},
		{
			name:     "local is newer",
			local:    Payload{"value": "local", "timestamp": "2024-01-15T12:00:00Z"},
			remote:   Payload{"value": "remote", "timestamp": "2024-01-15T11:00:00Z"},
			expected: "local",
		},
		{
			name:     "exact tie keeps local",
			local:    Payload{"value": "local", "timestamp": "2024-01-15T10:00:00Z"},
			remote:   Payload{"value": "remote", "timestamp": "2024-01-15T10:00:00Z"},
			expected: "local",
		},
		{
			name:     "unparseable remote timestamp loses",
			local:    Payload{"value": "local", "timestamp": "2024-01-15T10:00:00Z"},
			remote:   Payload{"value": "remote", "timestamp": "not-a-date"},
			expected: "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := newTestService()

			// Act
			result := service.Resolve(tt.local, tt.remote, StrategyLastWriteWins, nil)

			// Assert
			assert.Equal(t, tt.expected, result["value"])
		})
	}
}

func TestResolve_FixedSideStrategies(t *testing.T) {
	// Arrange
	service := newTestService()
	local := Payload{"value": "local", "timestamp": "2024-01-15T10:00:00Z"}
	remote := Payload{"value": "remote", "timestamp": "2024-01-15T11:00:00Z"}

	// Act & Assert
	assert.Equal(t, "local", service.Resolve(local, remote, StrategyLocalWins, nil)["value"])
	assert.Equal(t, "remote", service.Resolve(local, remote, StrategyRemoteWins, nil)["value"])
}

func TestResolve_UserChoice(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		expected   string
	}{
		{name: "prefers remote", preference: "remote", expected: "remote"},
		{name: "prefers local", preference: "local", expected: "local"},
		{name: "empty preference keeps local", preference: "", expected: "local"},
		{name: "unknown preference keeps local", preference: "both", expected: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := newTestService()
			local := Payload{"value": "local"}
			remote := Payload{"value": "remote"}

			// Act
			result := service.Resolve(local, remote, StrategyUserChoice, &ResolveOptions{
				UserPreference: tt.preference,
			})

			// Assert
			assert.Equal(t, tt.expected, result["value"])
		})
	}
}

func TestResolve_UnknownStrategyFallsBackToLastWriteWins(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	service := NewService(slog.New(slog.NewTextHandler(&buf, nil)))
	local := Payload{"value": "local", "timestamp": "2024-01-15T10:00:00Z"}
	remote := Payload{"value": "remote", "timestamp": "2024-01-15T11:00:00Z"}

	// Act
	result := service.Resolve(local, remote, Strategy("quantum"), nil)

	// Assert
	require.NotNil(t, result)
	assert.Equal(t, "remote", result["value"])
	assert.Contains(t, buf.String(), "unknown resolution strategy")
}

func TestStrategy_IsValid(t *testing.T) {
	assert.True(t, StrategyLastWriteWins.IsValid())
	assert.True(t, StrategyMerge.IsValid())
	assert.True(t, StrategyUserChoice.IsValid())
	assert.True(t, StrategyLocalWins.IsValid())
	assert.True(t, StrategyRemoteWins.IsValid())
	assert.False(t, Strategy("").IsValid())
	assert.False(t, Strategy("newest_wins").IsValid())
}
