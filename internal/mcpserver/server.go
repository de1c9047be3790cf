// Package mcpserver exposes memories and sign-in status as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/relay"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const sourceMCP = "mcp"

// Server wraps an MCP server whose tools are answered by the relay.
type Server struct {
	mcp    *mcpserver.MCPServer
	client messaging.Client
}

// NewServer registers the tools. Every call goes through client, so the
// tools behave exactly like any other context talking to the relay.
func NewServer(cfg config.MCPConfig, client messaging.Client) *Server {
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "recall"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp:    mcpserver.NewMCPServer(name, version),
		client: client,
	}
	s.setupTools()
	return s
}

func (s *Server) setupTools() {
	s.mcp.AddTool(mcp.NewTool("save_memory",
		mcp.WithDescription("Save a short text memory"),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to remember")),
		mcp.WithString("category", mcp.Description("Category, defaults to General")),
	), s.saveMemory)

	s.mcp.AddTool(mcp.NewTool("get_memories",
		mcp.WithDescription("List saved memories, oldest first"),
		mcp.WithString("category", mcp.Description("Only return memories in this category")),
	), s.getMemories)

	s.mcp.AddTool(mcp.NewTool("get_sign_in_status",
		mcp.WithDescription("Report the signed-in account and any sign-in waiting to be completed"),
	), s.signInStatus)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func (s *Server) send(ctx context.Context, tool string, msg relay.Message) (relay.Response, *mcp.CallToolResult) {
	resp, err := s.client.Send(ctx, msg)
	if err != nil {
		logger.Error("Relay call failed", zap.String("tool", tool), zap.Error(err))
		return nil, mcp.NewToolResultError(fmt.Sprintf("relay unavailable: %v", err))
	}
	if msg, ok := resp["error"].(string); ok && msg != "" {
		return nil, mcp.NewToolResultError(msg)
	}
	return resp, nil
}

func (s *Server) saveMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	resp, failed := s.send(ctx, "save_memory", relay.Message{
		Type:     relay.TypeSaveMemory,
		Content:  stringArg(args, "content"),
		Category: stringArg(args, "category"),
		Source:   sourceMCP,
	})
	if failed != nil {
		return failed, nil
	}

	var mem memories.Memory
	if _, err := resp.Decode("memory", &mem); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved memory %s in %s", mem.ID, mem.Category)), nil
}

func (s *Server) getMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := stringArg(request.GetArguments(), "category")

	resp, failed := s.send(ctx, "get_memories", relay.Message{Type: relay.TypeGetMemories})
	if failed != nil {
		return failed, nil
	}

	var list []memories.Memory
	if _, err := resp.Decode("memories", &list); err != nil {
		return nil, err
	}
	out := make([]memories.Memory, 0, len(list))
	for _, m := range list {
		if category == "" || strings.EqualFold(m.Category, category) {
			out = append(out, m)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memories: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) signInStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, failed := s.send(ctx, "get_sign_in_status", relay.Message{Type: relay.TypeGetAuthSession})
	if failed != nil {
		return failed, nil
	}
	var session models.AuthSession
	signedIn, err := resp.Decode("session", &session)
	if err != nil {
		return nil, err
	}

	resp, failed = s.send(ctx, "get_sign_in_status", relay.Message{Type: relay.TypeGetPendingOAuth})
	if failed != nil {
		return failed, nil
	}
	var pending models.PendingAuthPayload
	hasPending, err := resp.Decode("pending", &pending)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if signedIn {
		who := session.Email
		if who == "" {
			who = session.UserID
		}
		fmt.Fprintf(&b, "Signed in with %s as %s.", session.Provider, who)
	} else {
		b.WriteString("Not signed in.")
	}
	if hasPending {
		fmt.Fprintf(&b, " A %s sign-in is waiting to be completed.", pending.Provider)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// MCP returns the underlying server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// HTTPHandler serves the tools over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcp)
}

// ServeSTDIO serves the tools on stdin/stdout until ctx is done.
func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting MCP server over stdio")
	return mcpserver.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}
