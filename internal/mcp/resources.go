package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
)

const recentResourceLimit = 20

func registerRecentResource(s *server.MCPServer, svc *entry.Service) {
	resource := mcp.NewResource(
		"dataentry://history/recent",
		"Recent Analyses",
		mcp.WithResourceDescription("The 20 most recent analyses with their extracted fields."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type recentEntry struct {
			ID        string              `json:"id"`
			Source    string              `json:"source"`
			Excerpt   string              `json:"excerpt"`
			Fields    map[string][]string `json:"fields"`
			CreatedAt string              `json:"created_at"`
		}

		entries := svc.Recent(recentResourceLimit)
		recent := make([]recentEntry, 0, len(entries))
		for _, e := range entries {
			recent = append(recent, recentEntry{
				ID:        e.ID.String(),
				Source:    e.Source,
				Excerpt:   e.Excerpt,
				Fields:    e.Result.Map(),
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			})
		}

		data, _ := json.MarshalIndent(recent, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerFieldsResource(s *server.MCPServer, svc *entry.Service) {
	resource := mcp.NewResource(
		"dataentry://fields",
		"Field Memory",
		mcp.WithResourceDescription("Every value seen so far, grouped by field."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		mem := sortedFields(svc.Fields())
		payload := map[string]interface{}{
			"fields": mem,
			"count":  len(mem),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
