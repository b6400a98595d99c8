package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/baapco/diksha/internal/storage"
)

// --- mocks ---

type mockMCPRetriever struct {
	chunks []string
	query  string
	topK   int
}

func (m *mockMCPRetriever) Query(_ context.Context, text string, topK int) []string {
	m.query = text
	m.topK = topK
	return m.chunks
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Retriever: &mockMCPRetriever{},
		Ledger:    store,
		TopK:      3,
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPTool_SearchKnowledge(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	retriever := &mockMCPRetriever{chunks: []string{"We build software.", "We run schools."}}
	deps.Retriever = retriever
	handler := mcpSearchKnowledge(deps)

	req := makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query": "what do you do",
		"limit": 5,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if retriever.topK != 5 {
		t.Fatalf("expected limit forwarded, got %d", retriever.topK)
	}

	var chunks []string
	if err := json.Unmarshal([]byte(toolText(t, result)), &chunks); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 excerpts, got %d", len(chunks))
	}
}

func TestMCPTool_SearchKnowledge_DefaultLimit(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	retriever := &mockMCPRetriever{}
	deps.Retriever = retriever
	handler := mcpSearchKnowledge(deps)

	req := makeCallToolRequest("search_knowledge", map[string]interface{}{
		"query": "anything",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retriever.topK != 3 {
		t.Fatalf("expected default limit 3, got %d", retriever.topK)
	}
	if toolText(t, result) != "[]" {
		t.Fatalf("expected empty result, got %s", toolText(t, result))
	}
}

func TestMCPTool_SearchKnowledge_MissingQuery(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchKnowledge(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_knowledge", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query")
	}
}

func TestMCPTool_CustomerInfo(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	if err := store.CreateCustomer(storage.Customer{
		Endpoint:    "15550001111",
		Identity:    "919900112233",
		DisplayName: "Asha",
	}); err != nil {
		t.Fatalf("creating customer: %v", err)
	}
	handler := mcpCustomerInfo(deps)

	req := makeCallToolRequest("customer_info", map[string]interface{}{
		"identity": "919900112233",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var customer storage.Customer
	if err := json.Unmarshal([]byte(toolText(t, result)), &customer); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if customer.DisplayName != "Asha" {
		t.Fatalf("unexpected customer: %+v", customer)
	}
}

func TestMCPTool_CustomerInfo_NotFound(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCustomerInfo(deps)

	result, err := handler(context.Background(), makeCallToolRequest("customer_info", map[string]interface{}{
		"identity": "nobody",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown customer")
	}
}

func TestMCPTool_ListCustomers(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	for _, identity := range []string{"111", "222"} {
		if err := store.CreateCustomer(storage.Customer{Endpoint: "ep", Identity: identity}); err != nil {
			t.Fatalf("creating customer %s: %v", identity, err)
		}
	}
	handler := mcpListCustomers(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_customers", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var customers []storage.Customer
	if err := json.Unmarshal([]byte(toolText(t, result)), &customers); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(customers))
	}
}
