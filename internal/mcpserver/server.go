// Package mcpserver exposes the assistant to MCP clients over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/alphamind/internal/assistant"
	"github.com/rcliao/alphamind/internal/model"
	"github.com/rcliao/alphamind/internal/retrieval"
	"github.com/rcliao/alphamind/internal/session"
	"github.com/rcliao/alphamind/internal/store"
)

// Version is the MCP server version.
const Version = "0.1.0"

const factsURI = "alphamind://facts"

// ErrMissingAssistant is returned when no assistant is given.
var ErrMissingAssistant = errors.New("mcpserver: assistant is required")

// Assistant is what the tools call into. *assistant.Assistant satisfies it.
type Assistant interface {
	Handle(ctx context.Context, sess *session.Session, input string) (assistant.Reply, error)
	Retrieve(ctx context.Context, query string, turns []model.Turn) (string, retrieval.Result, error)
	Teach(ctx context.Context, fact string) (model.Fact, error)
	Facts() store.Store
}

// Server is the MCP server. One stdio connection is one conversation, so
// ask calls share a single in-memory session.
type Server struct {
	assistant Assistant
	sess      *session.Session
	server    *mcp.Server
}

// New creates the server and registers its tools and resources.
func New(a Assistant, historyDepth int) (*Server, error) {
	if a == nil {
		return nil, ErrMissingAssistant
	}
	s := &Server{
		assistant: a,
		sess:      session.Memory(historyDepth),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "alphamind",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from college documents and learned facts"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Response string `json:"response"`
	Stage    string `json:"stage,omitempty"`
	Resolved string `json:"resolved_query,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the query to retrieve context for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Resolved string `json:"resolved_query"`
	Stage    string `json:"stage"`
	Context  string `json:"context"`
}

// TeachInput is the input schema for the teach tool.
type TeachInput struct {
	Fact string `json:"fact" jsonschema:"a single-line fact to remember"`
}

// TeachOutput is the output schema for the teach tool.
type TeachOutput struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// FactsInput is the (empty) input schema for the facts tool.
type FactsInput struct{}

// FactsOutput is the output schema for the facts tool.
type FactsOutput struct {
	Facts []model.Fact `json:"facts"`
	Count int          `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using college documents, learned facts and the conversation so far",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the context the assistant would use for a query, without calling the model",
	}, s.handleRetrieve)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "teach",
		Description: "Store a new fact in long-term memory",
	}, s.handleTeach)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "facts",
		Description: "List every learned fact in teaching order",
	}, s.handleFacts)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}
	reply, err := s.assistant.Handle(ctx, s.sess, in.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Response: reply.Text,
		Stage:    string(reply.Stage),
		Resolved: reply.Resolved,
	}, nil
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, in RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	resolved, res, err := s.assistant.Retrieve(ctx, in.Query, s.sess.Turns())
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	return nil, RetrieveOutput{
		Resolved: resolved,
		Stage:    string(res.Stage),
		Context:  res.Context,
	}, nil
}

func (s *Server) handleTeach(ctx context.Context, _ *mcp.CallToolRequest, in TeachInput) (*mcp.CallToolResult, TeachOutput, error) {
	f, err := s.assistant.Teach(ctx, in.Fact)
	if err != nil {
		return nil, TeachOutput{}, fmt.Errorf("teach: %w", err)
	}
	return nil, TeachOutput{Seq: f.Seq, Text: f.Text}, nil
}

func (s *Server) handleFacts(_ context.Context, _ *mcp.CallToolRequest, _ FactsInput) (*mcp.CallToolResult, FactsOutput, error) {
	facts := s.assistant.Facts().Facts()
	return nil, FactsOutput{Facts: facts, Count: len(facts)}, nil
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         factsURI,
		Name:        "facts",
		Description: "The fact memory, one fact per line",
		MIMEType:    "text/plain",
	}, s.handleFactsResource)
}

func (s *Server) handleFactsResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	var b strings.Builder
	for _, f := range s.assistant.Facts().Facts() {
		b.WriteString(f.Text)
		b.WriteByte('\n')
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}
