package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the MCP server for mnemo.
type Server struct {
	ports  *Ports
	server *mcp.Server

	// operatorID is used when a tool call names no operator.
	operatorID int64
}

// NewServer creates a new MCP server with the given ports.
// defaultOperator is used by tool calls that do not pass operator_id.
func NewServer(ports *Ports, defaultOperator int64) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "mnemo",
		Version: Version,
	}

	s := &Server{
		ports:      ports,
		server:     mcp.NewServer(impl, nil),
		operatorID: defaultOperator,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on addr. Extra handlers, such as
// a metrics endpoint, are mounted next to the MCP handler at their path.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string, extra map[string]http.Handler) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	mux := http.NewServeMux()
	for path, h := range extra {
		mux.Handle(path, h)
	}
	mux.Handle("/", handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// operator resolves the operator for a tool call.
func (s *Server) operator(id int64) int64 {
	if id != 0 {
		return id
	}
	return s.operatorID
}
