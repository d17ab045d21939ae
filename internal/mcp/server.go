// Package mcp provides an MCP (Model Context Protocol) server for cohortgen,
// exposing generation, validation, and statistics over stdio.
package mcp

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cyclewise/cohortgen/internal/params"
	"github.com/cyclewise/cohortgen/internal/store"
)

// Server wraps the MCP SDK server around a cohort store and parameters.
type Server struct {
	server *sdk.Server
	store  *store.SQLiteCohortStore
	params *params.Parameters
	outDir string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "cohortgen")
	Version string // Server version
	OutDir  string // Output directory holding cohort.db and exports
	Params  *params.Parameters
}

// NewServer creates a new MCP server with cohortgen tools registered.
func NewServer(cfg *Config) (*Server, error) {
	cohortStore, err := store.NewSQLiteCohortStore(cfg.OutDir)
	if err != nil {
		return nil, err
	}

	p := cfg.Params
	if p == nil {
		p = params.Default()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server: mcpServer,
		store:  cohortStore,
		params: p,
		outDir: cfg.OutDir,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all cohortgen MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "cohort_generate",
		Description: "Generate a synthetic clinical cohort with the adaptive two-pass engine and persist it",
	}, s.handleCohortGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "cohort_validate",
		Description: "Validate a persisted cohort run against its population targets",
	}, s.handleCohortValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "cohort_stats",
		Description: "Summarize a persisted cohort run's key statistics",
	}, s.handleCohortStats)
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.store.Close()
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.store.Close()
}
