// Package mcpserver exposes the Bot API client as Model Context Protocol
// tools over stdio, so that an MCP host can send messages through the
// configured bot.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/tgclaw/internal/security"
	"github.com/flemzord/tgclaw/pkg/telegram"
)

// Envelope is the JSON text returned by every tool.
type Envelope struct {
	OK         bool `json:"ok"`
	StatusCode int  `json:"status_code"`
	Result     any  `json:"result"`
}

// Server holds the MCP server and the client its tools call.
type Server struct {
	client   *telegram.Client
	redactor *security.Redactor
	mcp      *server.MCPServer
}

// New registers the tools. redactor may be nil.
func New(client *telegram.Client, redactor *security.Redactor, version string) *Server {
	if redactor == nil {
		redactor = security.NewRedactor(nil)
	}
	s := &Server{
		client:   client,
		redactor: redactor,
		mcp:      server.NewMCPServer("tgclaw", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("get_me",
		mcp.WithDescription("Return the bot's own Telegram user (getMe)."),
	), s.handleGetMe)

	s.mcp.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a text message. chat is a configured alias or a chat ID."),
		mcp.WithString("chat", mcp.Required(), mcp.Description("Chat alias, numeric chat ID or @channel")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text, cut to 4096 characters")),
		mcp.WithString("parse_mode", mcp.Description("HTML (default), MarkdownV2 or Markdown")),
		mcp.WithBoolean("silent", mcp.Description("Deliver without notification sound")),
	), s.handleSendMessage)

	s.mcp.AddTool(mcp.NewTool("get_updates",
		mcp.WithDescription("Fetch pending updates (getUpdates)."),
		mcp.WithNumber("offset", mcp.Description("First update ID to return")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of updates, 1-100")),
	), s.handleGetUpdates)

	s.mcp.AddTool(mcp.NewTool("call_method",
		mcp.WithDescription("Call any Bot API method by name."),
		mcp.WithString("method", mcp.Required(), mcp.Description("Bot API method, e.g. getChat")),
		mcp.WithString("params_json", mcp.Description("JSON object of method parameters")),
		mcp.WithBoolean("use_get", mcp.Description("Send the request as GET")),
	), s.handleCallMethod)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleGetMe(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.client.GetMe(ctx)
	return s.toolResult(res, err)
}

func (s *Server) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chat, err := req.RequireString("chat")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var extra telegram.Params
	if req.GetBool("silent", false) {
		extra = telegram.Params{"disable_notification": true}
	}
	res, err := s.client.SendMessage(ctx, chat, text, req.GetString("parse_mode", ""), extra)
	return s.toolResult(res, err)
}

func (s *Server) handleGetUpdates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.client.GetUpdates(ctx, telegram.UpdatesRequest{
		Offset: req.GetInt("offset", 0),
		Limit:  req.GetInt("limit", 0),
	})
	return s.toolResult(res, err)
}

func (s *Server) handleCallMethod(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method, err := req.RequireString("method")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := telegram.Params{}
	if raw := req.GetString("params_json", ""); raw != "" {
		if params, err = telegram.ParseParams([]byte(raw)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("params_json: %v", err)), nil
		}
	}
	if req.GetBool("use_get", false) {
		params["method"] = "GET"
	}

	res, err := s.client.Call(ctx, method, params)
	return s.toolResult(res, err)
}

// toolResult renders a call as its JSON envelope. API failures are tool
// errors, not protocol errors.
func (s *Server) toolResult(res *telegram.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(s.redactor.Redact(err.Error())), nil
	}

	body := res.Result()
	if str, ok := body.(string); ok {
		body = s.redactor.Redact(str)
	}
	out, err := json.Marshal(Envelope{OK: !res.HasError(), StatusCode: res.StatusCode(), Result: body})
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}

	result := mcp.NewToolResultText(string(out))
	result.IsError = res.HasError()
	return result, nil
}
