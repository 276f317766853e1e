package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repolens/internal/errs"
)

const (
	DefaultBaseURL    = "https://dev.azure.com"
	DefaultAPIVersion = "7.0"
)

// Client calls the Azure DevOps REST API of one organization using a
// personal access token.
type Client struct {
	baseURL    string
	org        string
	pat        string
	apiVersion string
	http       *http.Client
}

func NewClient(baseURL, org, pat, apiVersion string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		org:        org,
		pat:        pat,
		apiVersion: apiVersion,
		http:       &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has an organization and a token.
func (c *Client) Enabled() bool { return c.org != "" && c.pat != "" }

func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+c.pat))
}

// get calls {base}/{org}/_apis/{endpoint}.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := c.baseURL + "/" + url.PathEscape(c.org) + "/_apis/" + endpoint
	return c.do(ctx, http.MethodGet, u, query, "", nil, out)
}

// createWorkItem posts a JSON patch document to the project's work item
// endpoint.
func (c *Client) createWorkItem(ctx context.Context, project, itemType string, ops []patchOp, out any) error {
	u := c.baseURL + "/" + url.PathEscape(c.org) + "/" + url.PathEscape(project) + "/_apis/wit/workitems/$" + itemType
	return c.do(ctx, http.MethodPost, u, nil, "application/json-patch+json", ops, out)
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

func (c *Client) do(ctx context.Context, method, u string, query url.Values, contentType string, body, out any) error {
	op := "azdo " + method
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	u += "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NewTransport(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewTransport(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.FromStatus(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.NewParse(op, err)
	}
	return nil
}
