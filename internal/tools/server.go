package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const serverName = "banking-mcp-server"

// Server speaks MCP as newline-delimited JSON-RPC. Protocol handling is done
// by mcp-go; calls naming an unknown tool are answered here with a text
// result instead of a protocol error.
type Server struct {
	mcp    *server.MCPServer
	known  map[string]struct{}
	logger *zap.Logger
}

func NewServer(d *Dispatcher, version string, logger *zap.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		known:  make(map[string]struct{}),
		logger: logger,
	}
	for _, tool := range Definitions() {
		s.mcp.AddTool(tool, d.Handle)
		s.known[tool.Name] = struct{}{}
	}
	return s
}

// Serve handles one message per line from in and writes each response as a
// line to out. It returns nil when in is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	s.logger.Info("tool server listening on stdio")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if response := s.handleLine(ctx, line); response != nil {
				if _, err := writer.Write(append(response, '\n')); err != nil {
					return fmt.Errorf("failed to write response: %w", err)
				}
				if err := writer.Flush(); err != nil {
					return fmt.Errorf("failed to write response: %w", err)
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read request: %w", readErr)
		}
	}
}

type callProbe struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		Name string `json:"name"`
	} `json:"params"`
}

type toolCallResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      json.RawMessage     `json:"id"`
	Result  *mcp.CallToolResult `json:"result"`
}

func (s *Server) handleLine(ctx context.Context, line []byte) []byte {
	var probe callProbe
	if err := json.Unmarshal(line, &probe); err == nil && probe.Method == string(mcp.MethodToolsCall) {
		if _, ok := s.known[probe.Params.Name]; !ok && len(probe.ID) > 0 {
			s.logger.Warn("unknown tool", zap.String("tool", probe.Params.Name))
			return s.marshal(toolCallResponse{
				JSONRPC: mcp.JSONRPC_VERSION,
				ID:      probe.ID,
				Result:  UnknownToolResult(probe.Params.Name),
			})
		}
	}

	response := s.mcp.HandleMessage(ctx, line)
	if response == nil {
		return nil
	}
	return s.marshal(response)
}

func (s *Server) marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return nil
	}
	return data
}
