// Package server exposes the loaded tasks and their run sessions over MCP.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/mark3labs/mcp-go/server"

	"overseer.dev/internal/logs"
	"overseer.dev/internal/task"
)

// LoadFunc builds a fresh registry from the task definitions on disk
type LoadFunc func() (*task.Registry, error)

// Options configures a Server
type Options struct {
	Version  string
	Sessions *logs.Store
	Load     LoadFunc
	Log      logr.Logger
}

// Server wraps the MCP server with the task registry
type Server struct {
	mu        sync.Mutex
	mcpServer *server.MCPServer
	registry  *task.Registry
	load      LoadFunc
	sessions  *logs.Store
	dedup     *task.Deduplicator
	log       logr.Logger
}

// New loads the tasks and registers every tool and resource
func New(opts Options) (*Server, error) {
	if opts.Load == nil {
		return nil, errors.New("no task loader configured")
	}
	if opts.Sessions == nil {
		return nil, errors.New("no session store configured")
	}

	registry, err := opts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"overseer",
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s := &Server{
		mcpServer: mcpServer,
		registry:  registry,
		load:      opts.Load,
		sessions:  opts.Sessions,
		dedup:     task.NewDeduplicator(),
		log:       opts.Log.WithName("mcp"),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve serves MCP over stdio until the client disconnects
func (s *Server) Serve() error {
	s.log.Info("serving MCP over stdio", "tasks", s.currentRegistry().Len())
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP serves MCP over the streamable HTTP transport on addr until
// ctx ends
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down HTTP server")
		if err := httpServer.Shutdown(context.Background()); err != nil {
			s.log.Error(err, "failed to shut down HTTP server")
		}
	}()

	s.log.Info("serving MCP over HTTP", "endpoint", endpointURL(addr), "tasks", s.currentRegistry().Len())
	err := httpServer.Start(addr)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// endpointURL expands a listen address like ":8080" to the URL clients
// connect to. mcp-go registers its handlers at /mcp.
func endpointURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	addr = strings.TrimRight(addr, "/")
	if !strings.HasSuffix(addr, "/mcp") {
		addr += "/mcp"
	}
	return addr
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) currentRegistry() *task.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}
