package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
)

func setupTestServer(t *testing.T) (*server.MCPServer, *entry.Service) {
	t.Helper()
	svc := entry.New(entry.WithHistoryLimit(5))
	return NewServer(ServerConfig{Service: svc, Version: "test"}), svc
}

func TestNewServer(t *testing.T) {
	srv, _ := setupTestServer(t)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

// callTool invokes an MCP tool through the JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return callResult
}

func callResource(t *testing.T, srv *server.MCPServer, uri string) string {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "resources/read",
		"params": map[string]interface{}{
			"uri": uri,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Contents []struct {
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Contents) == 0 {
		t.Fatalf("no resource contents for %s", uri)
	}
	return resp.Result.Contents[0].Text
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestAnalyzeTool(t *testing.T) {
	srv, svc := setupTestServer(t)

	result := callTool(t, srv, "dataentry_analyze", map[string]interface{}{
		"text": "Contact Arun Kumar at arun.kumar@example.com or 9876543210, pincode 600042.",
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", getTextContent(t, result))
	}

	var out struct {
		ID     string              `json:"id"`
		Fields map[string][]string `json:"fields"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("parsing analyze result: %v", err)
	}
	if got := out.Fields["Email"]; len(got) != 1 || got[0] != "arun.kumar@example.com" {
		t.Errorf("Email = %v", got)
	}
	if got := out.Fields["Phone"]; len(got) != 1 || got[0] != "9876543210" {
		t.Errorf("Phone = %v", got)
	}
	if out.ID == "" {
		t.Error("expected entry id")
	}
	if len(svc.Recent(5)) != 1 {
		t.Error("analysis not recorded in history")
	}
}

func TestAnalyzeToolWithFile(t *testing.T) {
	srv, _ := setupTestServer(t)

	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("Email: file@example.com"), 0o600); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "dataentry_analyze", map[string]interface{}{"file_path": path})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", getTextContent(t, result))
	}
	if !strings.Contains(getTextContent(t, result), "file@example.com") {
		t.Errorf("file content not analyzed: %s", getTextContent(t, result))
	}

	missing := callTool(t, srv, "dataentry_analyze", map[string]interface{}{"file_path": filepath.Join(t.TempDir(), "nope.txt")})
	if !missing.IsError {
		t.Error("expected error for missing file")
	}
}

func TestAnalyzeToolEmpty(t *testing.T) {
	srv, svc := setupTestServer(t)

	result := callTool(t, srv, "dataentry_analyze", map[string]interface{}{"text": "  "})
	if !result.IsError {
		t.Fatal("expected error for empty input")
	}
	if !strings.Contains(getTextContent(t, result), "no text or file content") {
		t.Errorf("unexpected error text: %s", getTextContent(t, result))
	}
	if len(svc.Recent(5)) != 0 {
		t.Error("rejected request reached history")
	}
}

func TestHistoryTool(t *testing.T) {
	srv, svc := setupTestServer(t)
	for _, text := range []string{"Email: a@x.com", "Email: b@x.com", "Email: c@x.com"} {
		if _, err := svc.Analyze(context.Background(), entry.Input{Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	result := callTool(t, srv, "dataentry_history", map[string]interface{}{"limit": float64(2)})
	var out struct {
		Count   int `json:"count"`
		Entries []struct {
			Result map[string][]string `json:"result"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("parsing history: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if got := out.Entries[0].Result["Email"]; len(got) != 1 || got[0] != "c@x.com" {
		t.Errorf("newest entry = %v", got)
	}

	neg := callTool(t, srv, "dataentry_history", map[string]interface{}{"limit": float64(-1)})
	if !neg.IsError {
		t.Error("expected error for negative limit")
	}
}

func TestFieldsTool(t *testing.T) {
	srv, svc := setupTestServer(t)
	if _, err := svc.Analyze(context.Background(), entry.Input{Text: "Email: b@x.com and a@x.com"}); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "dataentry_fields", map[string]interface{}{"field": "email"})
	var out struct {
		Fields map[string][]string `json:"fields"`
		Count  int                 `json:"count"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("parsing fields: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count = %d, want 1", out.Count)
	}
	got := out.Fields["Email"]
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@x.com" {
		t.Errorf("Email = %v", got)
	}
}

func TestRegisterTool(t *testing.T) {
	srv, svc := setupTestServer(t)

	early := callTool(t, srv, "dataentry_register", map[string]interface{}{"field": "Blood Group", "value": "O+"})
	if !early.IsError {
		t.Fatal("expected error with empty history")
	}
	if len(svc.Fields()) != 0 {
		t.Error("field memory changed by a failed registration")
	}

	if _, err := svc.Analyze(context.Background(), entry.Input{Text: "Email: a@x.com"}); err != nil {
		t.Fatal(err)
	}
	result := callTool(t, srv, "dataentry_register", map[string]interface{}{"field": "blood group", "value": "O+"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", getTextContent(t, result))
	}

	recent := svc.Recent(1)
	if got := recent[0].Result.Get("Blood Group"); len(got) != 1 || got[0] != "O+" {
		t.Errorf("Blood Group = %v", got)
	}
}

func TestStatsTool(t *testing.T) {
	srv, _ := setupTestServer(t)
	result := callTool(t, srv, "dataentry_stats", map[string]interface{}{})
	var stats entry.Stats
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &stats); err != nil {
		t.Fatalf("parsing stats: %v", err)
	}
	if stats.HistoryMax != 5 {
		t.Errorf("HistoryMax = %d, want 5", stats.HistoryMax)
	}
}

func TestRecentResource(t *testing.T) {
	srv, svc := setupTestServer(t)
	if _, err := svc.Analyze(context.Background(), entry.Input{Text: "Email: a@x.com"}); err != nil {
		t.Fatal(err)
	}

	text := callResource(t, srv, "dataentry://history/recent")
	var recent []struct {
		Source string              `json:"source"`
		Fields map[string][]string `json:"fields"`
	}
	if err := json.Unmarshal([]byte(text), &recent); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if len(recent) != 1 || recent[0].Source != "text" {
		t.Fatalf("unexpected recent resource: %s", text)
	}
	if got := recent[0].Fields["Email"]; len(got) != 1 || got[0] != "a@x.com" {
		t.Errorf("Email = %v", got)
	}

	if !strings.Contains(callResource(t, srv, "dataentry://fields"), "a@x.com") {
		t.Error("fields resource missing value")
	}
}
