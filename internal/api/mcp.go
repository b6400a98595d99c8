// Package api exposes operator tooling over MCP: knowledge search and
// customer ledger inspection for the running bot.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/baapco/diksha/internal/storage"
)

// MCPRetriever abstracts knowledge search for the MCP layer.
type MCPRetriever interface {
	Query(ctx context.Context, text string, topK int) []string
}

// MCPLedger abstracts customer ledger reads for the MCP layer.
type MCPLedger interface {
	GetCustomer(identity string) (storage.Customer, error)
	ListCustomers() ([]storage.Customer, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Retriever MCPRetriever
	Ledger    MCPLedger
	TopK      int
}

// NewMCPServer creates an MCP server with the diksha operator tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"diksha",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("diksha — WhatsApp assistant operator tools: knowledge search and customer ledger inspection."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge",
			mcp.WithDescription("Semantically search the company knowledge base and return relevant excerpts."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of excerpts (default matches the bot)")),
		),
		mcpSearchKnowledge(deps),
	)

	s.AddTool(
		mcp.NewTool("customer_info",
			mcp.WithDescription("Look up a customer record by WhatsApp number."),
			mcp.WithString("identity", mcp.Description("Customer WhatsApp number"), mcp.Required()),
		),
		mcpCustomerInfo(deps),
	)

	s.AddTool(
		mcp.NewTool("list_customers",
			mcp.WithDescription("List all customer records, oldest first."),
		),
		mcpListCustomers(deps),
	)

	return s
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", deps.TopK)
		if limit <= 0 {
			limit = deps.TopK
		}
		if limit > 50 {
			limit = 50
		}

		chunks := deps.Retriever.Query(ctx, query, limit)
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(chunks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCustomerInfo(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		identity, err := req.RequireString("identity")
		if err != nil {
			return mcpError("identity is required"), nil
		}

		customer, err := deps.Ledger.GetCustomer(identity)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(customer)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal customer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListCustomers(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		customers, err := deps.Ledger.ListCustomers()
		if err != nil {
			return mcpError(fmt.Sprintf("list failed: %v", err)), nil
		}
		if len(customers) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(customers)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal customers: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
