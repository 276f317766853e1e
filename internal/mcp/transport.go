package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"repolens/internal/logging"
)

// MaxMessageSize is the maximum size for a single line-delimited message (1MB).
const MaxMessageSize = 1024 * 1024

// Serve reads line-delimited JSON-RPC requests from r and writes one response
// line per request to w until r is exhausted or ctx is done. Notifications
// get no reply.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h RequestHandler, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			logger.Warn("malformed request", zap.Error(err))
			if err := writeLine(out, Failure("", ParseError, "Parse error: "+err.Error())); err != nil {
				return err
			}
			continue
		}

		if req.ID == "" && strings.HasPrefix(req.Method, "notifications/") {
			logger.Debug("notification", zap.String("method", req.Method))
			continue
		}

		if err := writeLine(out, h.Handle(ctx, req)); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading requests: %w", err)
	}
	return nil
}

func writeLine(w *bufio.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshaling response: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return w.Flush()
}

// StreamHandler sends requests over a line-delimited stream, such as the
// stdio pipes of a `repolens serve` subprocess. Calls are serialised.
type StreamHandler struct {
	mu      sync.Mutex
	w       io.Writer
	scanner *bufio.Scanner
}

func NewStreamHandler(r io.Reader, w io.Writer) *StreamHandler {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	return &StreamHandler{w: w, scanner: scanner}
}

// Handle writes req and reads the next response line. Transport failures are
// reported as InternalError responses.
func (s *StreamHandler) Handle(ctx context.Context, req Request) Response {
	if err := ctx.Err(); err != nil {
		return Failure(req.ID, InternalError, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return Failure(req.ID, InternalError, "Internal error: "+err.Error())
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return Failure(req.ID, InternalError, "transport write failed: "+err.Error())
	}

	if !s.scanner.Scan() {
		err := s.scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Failure(req.ID, InternalError, "transport read failed: "+err.Error())
	}

	var resp Response
	if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
		return Failure(req.ID, ParseError, "Parse error: "+err.Error())
	}
	if resp.ID() != req.ID {
		return Failure(req.ID, InternalError, fmt.Sprintf("response id mismatch: want %q, got %q", req.ID, resp.ID()))
	}
	return resp
}
