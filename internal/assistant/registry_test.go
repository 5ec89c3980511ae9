package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/models"
)

type trackingTool struct {
	echoTool
	sources []models.Source
}

func (t *trackingTool) LastSources() []models.Source { return t.sources }
func (t *trackingTool) ResetSources()                { t.sources = nil }

func TestRegistryDefinitionsKeepRegistrationOrder(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&echoTool{name: "beta"})
	registry.Register(&echoTool{name: "alpha"})
	registry.Register(&echoTool{name: "gamma"})

	defs := registry.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "beta", defs[0].Name)
	assert.Equal(t, "alpha", defs[1].Name)
	assert.Equal(t, "gamma", defs[2].Name)
}

func TestRegistryDuplicateNameOverwrites(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&echoTool{name: "search", response: "old"})
	registry.Register(&echoTool{name: "search", response: "new"})

	assert.Len(t, registry.Definitions(), 1)

	out, err := registry.Invoke(context.Background(), "search", "{}")
	require.NoError(t, err)
	assert.Equal(t, "new", out)
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	registry := NewToolRegistry()

	out, err := registry.Invoke(context.Background(), "missing", "{}")
	require.NoError(t, err, "an unknown tool name is reported as text, not an error")
	assert.Equal(t, "Tool 'missing' not found", out)
}

func TestRegistryLastSourcesPicksFirstNonEmpty(t *testing.T) {
	empty := &trackingTool{echoTool: echoTool{name: "outline"}}
	full := &trackingTool{
		echoTool: echoTool{name: "search"},
		sources:  []models.Source{{Text: "Course A - Lesson 1", URL: "https://example.com/1"}},
	}
	registry := NewToolRegistry()
	registry.Register(empty)
	registry.Register(full)
	registry.Register(&echoTool{name: "plain"}) // no tracking, must be skipped

	sources := registry.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "Course A - Lesson 1", sources[0].Text)
}

func TestRegistryResetSourcesIsIdempotent(t *testing.T) {
	tool := &trackingTool{
		echoTool: echoTool{name: "search"},
		sources:  []models.Source{{Text: "Course A"}},
	}
	registry := NewToolRegistry()
	registry.Register(tool)

	registry.ResetSources()
	assert.Empty(t, registry.LastSources())

	registry.ResetSources()
	assert.Empty(t, registry.LastSources(), "resetting an already clean registry changes nothing")
}
