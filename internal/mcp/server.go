// Package mcp provides a Model Context Protocol server for the data entry
// service.
//
// It exposes analysis, history, field memory and custom field registration as
// MCP tools, and recent history and field memory as MCP resources. The
// server speaks stdio (Claude Desktop, Cursor and similar clients).
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/registrar"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Service *entry.Service
	Version string // version string for MCP server info
}

// NewServer creates a configured MCP server with all tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"AI Data Entry",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerAnalyzeTool(s, cfg.Service)
	registerHistoryTool(s, cfg.Service)
	registerFieldsTool(s, cfg.Service)
	registerRegisterTool(s, cfg.Service)
	registerStatsTool(s, cfg.Service)

	registerRecentResource(s, cfg.Service)
	registerFieldsResource(s, cfg.Service)

	return s
}

// ServeStdio runs srv over the given streams until ctx is done or stdin closes.
func ServeStdio(ctx context.Context, srv *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// --- Tools ---

func registerAnalyzeTool(s *server.MCPServer, svc *entry.Service) {
	tool := mcp.NewTool("dataentry_analyze",
		mcp.WithDescription("Extract structured fields (name, email, phone, address, amounts, dates and more) from free text or a local document. Results are added to history and field memory."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Description("Text to analyze. May be combined with file_path."),
		),
		mcp.WithString("file_path",
			mcp.Description("Path to a local file (txt, pdf, docx, html or image) whose text is analyzed."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in entry.Input
		if text, err := req.RequireString("text"); err == nil {
			in.Text = text
		}
		if path, err := req.RequireString("file_path"); err == nil && strings.TrimSpace(path) != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("reading file: %v", err)), nil
			}
			in.Files = append(in.Files, entry.File{Name: filepath.Base(path), Data: data})
		}

		a, err := svc.Analyze(ctx, in)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze error: %v", err)), nil
		}

		payload := map[string]interface{}{
			"id":         a.Entry.ID.String(),
			"source":     a.Entry.Source,
			"fields":     a.Entry.Result,
			"new_values": a.NewValues,
		}
		if len(a.Documents) > 0 {
			payload["documents"] = a.Documents
		}
		if len(a.Failures) > 0 {
			payload["warnings"] = a.Failures
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerHistoryTool(s *server.MCPServer, svc *entry.Service) {
	tool := mcp.NewTool("dataentry_history",
		mcp.WithDescription("List recent analyses, most recent first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 10, max: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := defaultHistoryLimit
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			limit = int(limitVal)
			if limit > maxHistoryLimit {
				limit = maxHistoryLimit
			}
			if limit < 0 {
				return mcp.NewToolResultError("limit must be >= 0"), nil
			}
		}

		entries := svc.Recent(limit)
		data, _ := json.MarshalIndent(map[string]interface{}{
			"entries": nonNil(entries),
			"count":   len(entries),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerFieldsTool(s *server.MCPServer, svc *entry.Service) {
	tool := mcp.NewTool("dataentry_fields",
		mcp.WithDescription("Show field memory: every value seen so far, grouped by field. Optionally restrict to one field."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("field",
			mcp.Description("Only return this field (case-insensitive, e.g. 'email')."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mem := sortedFields(svc.Fields())

		if raw, err := req.RequireString("field"); err == nil && strings.TrimSpace(raw) != "" {
			name, err := fields.ParseName(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid field: %v", err)), nil
			}
			values, ok := mem[name.String()]
			if !ok {
				values = []string{}
			}
			mem = map[string][]string{name.String(): values}
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"fields": mem,
			"count":  len(mem),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRegisterTool(s *server.MCPServer, svc *entry.Service) {
	tool := mcp.NewTool("dataentry_register",
		mcp.WithDescription("Attach a custom field and value to the most recent analysis and remember it in field memory."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Field name, e.g. 'Blood Group'"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Field value"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcp.NewToolResultError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError("value is required"), nil
		}

		updated, err := svc.RegisterCustom(ctx, field, value)
		if errors.Is(err, registrar.ErrNoActiveResult) {
			return mcp.NewToolResultError("no analysis yet: run dataentry_analyze first"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("register error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(updated, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, svc *entry.Service) {
	tool := mcp.NewTool("dataentry_stats",
		mcp.WithDescription("Session statistics: history size and bound, field and value counts, registration policy and storage."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Helpers ---

// sortedFields converts field memory to plain string keys with sorted values.
func sortedFields(mem map[fields.Name][]string) map[string][]string {
	out := make(map[string][]string, len(mem))
	for name, values := range mem {
		v := append([]string(nil), values...)
		sort.Strings(v)
		out[name.String()] = v
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
