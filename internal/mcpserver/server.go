// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Astra tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/appservice"
	"github.com/starford/astra/internal/intent"
)

const grammarURI = "astra://command-grammar"

// Server wraps the MCP server with Astra tools.
type Server struct {
	mcp *server.MCPServer
	svc *appservice.Service
}

// New creates a new MCP server with all Astra tools registered.
func New(svc *appservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Astra",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("analyze_intent",
		mcp.WithDescription("Classify an utterance as direct, vague or unknown without changing anything. "+
			"Pass app_id to analyze against that app's pages, or pages to supply them directly."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Utterance to classify")),
		mcp.WithString("app_id", mcp.Description("Optional app to analyze against")),
		mcp.WithString("pages", mcp.Description("Optional comma-separated page names used when app_id is empty")),
	), s.analyzeIntent)

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Run an utterance against an app and apply it when it is a direct command. "+
			"Utterances MUST follow the command grammar. Read it first via the get_command_grammar "+
			"tool or the astra://command-grammar resource."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("App to change")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Utterance, e.g. add page Pricing")),
		mcp.WithString("active_page_id", mcp.Description("Page currently shown in the preview")),
	), s.runCommand)

	s.mcp.AddTool(mcp.NewTool("list_apps",
		mcp.WithDescription("List all apps, most recently updated first."),
	), s.listApps)

	s.mcp.AddTool(mcp.NewTool("create_app",
		mcp.WithDescription("Create an app with a single Home page."),
		mcp.WithString("name", mcp.Description("Optional app name (empty picks New App N)")),
	), s.createApp)

	s.mcp.AddTool(mcp.NewTool("get_app",
		mcp.WithDescription("Read the full blueprint of an app."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("App id")),
	), s.getApp)

	s.mcp.AddTool(mcp.NewTool("delete_app",
		mcp.WithDescription("Delete an app."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("App id")),
	), s.deleteApp)

	s.mcp.AddTool(mcp.NewTool("get_command_grammar",
		mcp.WithDescription("Returns the Astra command grammar. "+
			"Call this before run_command to phrase utterances correctly."),
	), s.getCommandGrammar)

	// Resource: command grammar.
	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Command Grammar",
			mcp.WithResourceDescription("Utterances the intent analyzer turns into page commands."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// optString returns the named argument, or "" when it is absent.
func optString(req mcp.CallToolRequest, name string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return ""
}

func errorResult(err error, id string) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("app not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) analyzeIntent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id := optString(req, "app_id"); id != "" {
		res, err := s.svc.Analyze(ctx, id, text)
		if err != nil {
			return errorResult(err, id), nil
		}
		return jsonResult(res)
	}

	var ictx intent.Context
	for _, p := range strings.Split(optString(req, "pages"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			ictx.CurrentPages = append(ictx.CurrentPages, p)
		}
	}
	return jsonResult(intent.Analyze(text, ictx))
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("app_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reply, err := s.svc.Submit(ctx, id, text, optString(req, "active_page_id"))
	if err != nil {
		return errorResult(err, id), nil
	}
	return jsonResult(reply)
}

func (s *Server) listApps(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := s.svc.ListApps(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(apps) == 0 {
		return mcp.NewToolResultText("no apps"), nil
	}
	lines := make([]string, 0, len(apps))
	for _, a := range apps {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d pages", a.ID, a.Name, len(a.Pages)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) createApp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bp, err := s.svc.CreateApp(ctx, optString(req, "name"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(bp)
}

func (s *Server) getApp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("app_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bp, err := s.svc.GetApp(ctx, id)
	if err != nil {
		return errorResult(err, id), nil
	}
	return jsonResult(bp)
}

func (s *Server) deleteApp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("app_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteApp(ctx, id); err != nil {
		return errorResult(err, id), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getCommandGrammar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CommandGrammar), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     CommandGrammar,
		},
	}, nil
}
