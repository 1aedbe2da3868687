package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		wantID int64
		wantOK bool
	}{
		{"valid document URI", "mnemo://documents/456", 456, true},
		{"invalid prefix", "file://documents/456", 0, false},
		{"non numeric id", "mnemo://documents/abc", 0, false},
		{"zero id", "mnemo://documents/0", 0, false},
		{"empty URI", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := extractDocumentID(tt.uri)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document text", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		ports.Document = &mockDocumentService{document: &domain.Document{ID: 3, Text: "full text"}}
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		res, err := server.handleDocumentContentResource(ctx, readRequest("mnemo://documents/3"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "full text", res.Contents[0].Text)
		assert.Equal(t, "text/plain", res.Contents[0].MIMEType)
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		ports.Document = &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, readRequest("mnemo://documents/3"))
		assert.Error(t, err)
	})

	t.Run("without document service", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, readRequest("mnemo://documents/3"))
		assert.Error(t, err)
	})
}

func TestServer_handleCollectionsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists collections with counts", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		ports.Document = &mockDocumentService{
			collections: []domain.Collection{{ID: 1, Name: "alpha"}, {ID: 2, Name: "beta"}},
			counts:      map[int64]int{1: 4},
		}
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		res, err := server.handleCollectionsResource(ctx, readRequest("mnemo://collections"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.JSONEq(t, `[{"id":1,"name":"alpha","documents":4},{"id":2,"name":"beta","documents":0}]`, res.Contents[0].Text)
	})

	t.Run("without document service returns empty list", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		server, err := NewServer(ports, 1)
		require.NoError(t, err)

		res, err := server.handleCollectionsResource(ctx, readRequest("mnemo://collections"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})
}
