package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ai-fo/nexus/index"
	"github.com/ai-fo/nexus/router"
)

type chatRouter interface {
	Chat(ctx context.Context, sessionKey, message string) (router.Reply, error)
	ClearSession(sessionKey string)
}

// NewAssistantServer exposes the router contract as MCP tools: chat runs a
// full turn, search queries the semantic index directly, clear_session
// resets one conversation.
func NewAssistantServer(rt chatRouter, searcher index.Searcher, log *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("nexus-assistant", "1.0.0", server.WithToolCapabilities(false))

	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Ask the transcript assistant a question within a session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Opaque session identifier"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("User message"),
		))
	srv.AddTool(chatTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		reply, err := rt.Chat(ctx, sessionID, message)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := json.Marshal(reply)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(raw)), nil
	})

	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Search the transcript corpus and return ranked chunks"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))
	srv.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := searcher.Search(ctx, q, 5)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range results {
			raw, err := json.Marshal(struct {
				Score   float64 `json:"score"`
				File    string  `json:"file"`
				IsImage bool    `json:"is_image"`
				Text    string  `json:"text"`
			}{
				Score:   r.Score,
				File:    r.Chunk.SourceFile,
				IsImage: r.Chunk.IsImageDescription,
				Text:    r.Chunk.Content,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response += fmt.Sprintf("%s\n", string(raw))
		}
		return mcp.NewToolResultText(response), nil
	})

	clearTool := mcp.NewTool("clear_session",
		mcp.WithDescription("Clear the conversation history of a session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Opaque session identifier"),
		))
	srv.AddTool(clearTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rt.ClearSession(sessionID)
		log.Info("session cleared", "session", sessionID)
		return mcp.NewToolResultText(`{"status":"ok"}`), nil
	})

	return srv
}
