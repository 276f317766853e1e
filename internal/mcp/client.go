package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ToolInfo is a tools/list entry as seen by a client.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// Client is the orchestrator's view of a backend. It talks to any
// RequestHandler, in-process or over a stream.
type Client struct {
	h RequestHandler

	mu    sync.Mutex
	tools []ToolInfo
}

func NewClient(h RequestHandler) *Client {
	return &Client{h: h}
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	resp := c.h.Handle(ctx, Request{
		Method: method,
		Params: params,
		ID:     uuid.NewString(),
	})
	if e := resp.Err(); e != nil {
		return nil, e
	}
	result, _ := resp.Result()
	return result, nil
}

// ServerInfo is the initialize handshake result.
type ServerInfo struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

// Initialize performs the protocol handshake.
func (c *Client) Initialize(ctx context.Context) (*ServerInfo, error) {
	result, err := c.call(ctx, "initialize", map[string]any{"protocolVersion": ProtocolVersion})
	if err != nil {
		return nil, err
	}
	var info ServerInfo
	if err := remarshal(result, &info); err != nil {
		return nil, fmt.Errorf("decode initialize: %w", err)
	}
	return &info, nil
}

// ListTools returns the backend's tools. The first successful listing is cached.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	c.mu.Lock()
	cached := c.tools
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := remarshal(result, &out); err != nil {
		return nil, fmt.Errorf("decode tools/list: %w", err)
	}
	if out.Tools == nil {
		out.Tools = []ToolInfo{}
	}

	c.mu.Lock()
	c.tools = out.Tools
	c.mu.Unlock()
	return out.Tools, nil
}

// HasTool reports whether the backend lists a tool with the given name.
func (c *Client) HasTool(ctx context.Context, name string) (bool, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tools {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CallTool invokes a tool and decodes the JSON text of its first content
// item into out. out may be nil when the result is not needed.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return err
	}
	text, err := firstText(result, "content")
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("tool %s: decode result: %w", name, err)
	}
	return nil
}

func (c *Client) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	result, err := c.call(ctx, "resources/list", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Resources []ResourceInfo `json:"resources"`
	}
	if err := remarshal(result, &out); err != nil {
		return nil, fmt.Errorf("decode resources/list: %w", err)
	}
	return out.Resources, nil
}

// ReadResource returns the text of a resource.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	result, err := c.call(ctx, "resources/read", map[string]any{"uri": uri})
	if err != nil {
		return "", err
	}
	return firstText(result, "contents")
}

func firstText(result map[string]any, key string) (string, error) {
	items, _ := result[key].([]any)
	if len(items) == 0 {
		return "", fmt.Errorf("result has no %s", key)
	}
	item, _ := items[0].(map[string]any)
	text, ok := item["text"].(string)
	if !ok {
		return "", fmt.Errorf("first %s item has no text", key)
	}
	return text, nil
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
