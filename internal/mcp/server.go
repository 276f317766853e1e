package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"repolens/internal/errs"
	"repolens/internal/logging"
)

const ProtocolVersion = "2024-11-05"

// RequestHandler turns a request into a response. Implementations never
// return an error; every failure is encoded in the Response.
type RequestHandler interface {
	Handle(ctx context.Context, req Request) Response
}

// Server dispatches requests against a sealed Registry.
type Server struct {
	name     string
	version  string
	registry *Registry
	logger   *zap.Logger
}

// NewServer seals the registry; no further tools can be registered.
func NewServer(name, version string, registry *Registry, logger *zap.Logger) *Server {
	registry.Seal()
	return &Server{
		name:     name,
		version:  version,
		registry: registry,
		logger:   logging.OrNop(logger).With(zap.String("server", name)),
	}
}

func (s *Server) Name() string { return s.name }

func (s *Server) Registry() *Registry { return s.registry }

// Handle routes a request. It recovers from panics in any route.
func (s *Server) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling request", zap.String("method", req.Method), zap.Any("panic", r))
			resp = Failure(req.ID, InternalError, fmt.Sprintf("Internal error: %v", r))
		}
		resp = resp.replyTo(req)
	}()

	s.logger.Debug("handling request", zap.String("method", req.Method), zap.String("id", req.ID))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(req)
	case "resources/read":
		return s.handleResourcesRead(req)
	default:
		return Failure(req.ID, MethodNotFound, "Method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req Request) Response {
	return Success(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
	})
}

func (s *Server) handleToolsList(req Request) Response {
	tools := make([]any, 0, len(s.registry.toolOrder))
	for _, t := range s.registry.Tools() {
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema(),
		})
	}
	return Success(req.ID, map[string]any{"tools": tools})
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) Response {
	name, _ := req.Params["name"].(string)
	if name == "" {
		return Failure(req.ID, InvalidParams, "Missing tool name")
	}
	tool, ok := s.registry.Tool(name)
	if !ok {
		return Failure(req.ID, InvalidParams, "Unknown tool: "+name)
	}

	rawArgs, _ := req.Params["arguments"].(map[string]any)
	args, err := tool.bind(rawArgs)
	if err != nil {
		return Failure(req.ID, InvalidParams, fmt.Sprintf("Invalid arguments for %s: %v", name, err))
	}

	result, err := s.invoke(ctx, tool, args)
	if err != nil {
		s.logger.Warn("tool execution failed", zap.String("tool", name), zap.Error(err))
		var data map[string]any
		if kind := errs.KindOf(err); kind != "" {
			data = map[string]any{"kind": string(kind)}
		}
		return failureWithData(req.ID, InternalError, "Tool execution error: "+err.Error(), data)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Failure(req.ID, InternalError, "Tool execution error: unencodable result: "+err.Error())
	}
	return Success(req.ID, map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": string(text)},
		},
	})
}

// invoke runs the handler, converting a panic into an error.
func (s *Server) invoke(ctx context.Context, tool *Tool, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", tool.Name, r)
		}
	}()
	return tool.Handler(ctx, args)
}

func (s *Server) handleResourcesList(req Request) Response {
	resources := make([]any, 0, len(s.registry.resOrder))
	for _, r := range s.registry.Resources() {
		resources = append(resources, map[string]any{
			"uri":         r.URI,
			"name":        r.Name,
			"description": r.Description,
			"mimeType":    r.MimeType,
		})
	}
	return Success(req.ID, map[string]any{"resources": resources})
}

func (s *Server) handleResourcesRead(req Request) Response {
	uri, _ := req.Params["uri"].(string)
	res, ok := s.registry.Resource(uri)
	if !ok {
		return Failure(req.ID, InvalidParams, "Resource not found: "+uri)
	}

	var text string
	if str, isString := res.Data.(string); isString {
		text = str
	} else {
		data, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return Failure(req.ID, InternalError, "Internal error: "+err.Error())
		}
		text = string(data)
	}
	return Success(req.ID, map[string]any{
		"contents": []any{
			map[string]any{"uri": res.URI, "mimeType": res.MimeType, "text": text},
		},
	})
}
