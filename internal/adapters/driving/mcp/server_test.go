package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing catalog returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{}, 1)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingCatalogService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		server, err := NewServer(ports, 1)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	full, _, _, _ := newTestPorts()

	tests := []struct {
		name  string
		ports Ports
		want  error
	}{
		{"no ports", Ports{}, ErrMissingCatalogService},
		{"no selection", Ports{Catalog: full.Catalog}, ErrMissingSelectionService},
		{"no pipeline", Ports{Catalog: full.Catalog, Selection: full.Selection}, ErrMissingPipelineService},
		{"document is optional", *full, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServer_OperatorDefault(t *testing.T) {
	ports, _, _, _ := newTestPorts()
	server, err := NewServer(ports, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), server.operator(0))
	assert.Equal(t, int64(7), server.operator(7))
}
