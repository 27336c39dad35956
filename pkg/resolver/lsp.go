// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// dialTimeout bounds how long Dial waits for the child process to spawn
// and complete the LSP initialize handshake (§5's cancellation rule).
const dialTimeout = 5 * time.Second

// Client is a minimal JSON-RPC 2.0 client over a language server child
// process's stdio, framed with LSP's Content-Length headers. It implements
// exactly the three request kinds the extractor needs and nothing of the
// broader LSP surface (no diagnostics, no workspace edits, no
// textDocument/didChange bookkeeping beyond what a one-shot query needs).
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan rpcResponse

	readErr chan error
	closed  chan struct{}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dial spawns command as a child process, performs the LSP initialize
// handshake against rootURI, and returns a ready Client. The handshake is
// bounded by dialTimeout regardless of ctx's own deadline.
func Dial(ctx context.Context, command string, args []string, rootURI string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("resolver: lsp stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("resolver: lsp stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("resolver: lsp start %s: %w", command, err)
	}

	c := &Client{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
		pending: make(map[int64]chan rpcResponse),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
	go c.readLoop()

	if _, err := c.call(ctx, "initialize", map[string]interface{}{
		"processId": nil,
		"rootUri":   rootURI,
		"capabilities": map[string]interface{}{},
	}); err != nil {
		c.Close()
		return nil, fmt.Errorf("resolver: lsp initialize: %w", err)
	}
	if err := c.notify("initialized", map[string]interface{}{}); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) readLoop() {
	for {
		headers := map[string]string{}
		for {
			line, err := c.stdout.ReadString('\n')
			if err != nil {
				c.readErr <- err
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
		length, err := strconv.Atoi(headers["Content-Length"])
		if err != nil {
			c.readErr <- fmt.Errorf("resolver: lsp missing Content-Length: %w", err)
			return
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(c.stdout, body); err != nil {
			c.readErr <- err
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) write(payload []byte) error {
	frame := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := c.stdin.Write([]byte(frame)); err != nil {
		return err
	}
	_, err := c.stdin.Write(payload)
	return err
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(payload); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-c.readErr:
		return nil, err
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("resolver: lsp %s: %s (%d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	}
}

func (c *Client) notify(method string, params interface{}) error {
	payload, err := json.Marshal(struct {
		JSONRPC string      `json:"jsonrpc"`
		Method  string      `json:"method"`
		Params  interface{} `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return err
	}
	return c.write(payload)
}

func positionParams(pos Position) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": "file://" + pos.File},
		"position": map[string]interface{}{
			"line":      pos.Line,
			"character": pos.Column,
		},
	}
}

type lspLocation struct {
	URI   string `json:"uri"`
	Range struct {
		Start struct {
			Line      int `json:"line"`
			Character int `json:"character"`
		} `json:"start"`
	} `json:"range"`
}

func toLocation(l lspLocation) Location {
	return Location{
		File:   strings.TrimPrefix(l.URI, "file://"),
		Line:   l.Range.Start.Line,
		Column: l.Range.Start.Character,
	}
}

// GotoDefinition issues textDocument/definition. Language servers may
// return either a single location or an array; both shapes are handled.
func (c *Client) GotoDefinition(ctx context.Context, pos Position) (*Location, error) {
	raw, err := c.call(ctx, "textDocument/definition", positionParams(pos))
	if err != nil {
		return nil, err
	}
	locs, err := decodeLocations(raw)
	if err != nil || len(locs) == 0 {
		return nil, ErrNotAvailable
	}
	return &locs[0], nil
}

func (c *Client) GotoImplementations(ctx context.Context, pos Position) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/implementation", positionParams(pos))
	if err != nil {
		return nil, err
	}
	locs, err := decodeLocations(raw)
	if err != nil {
		return nil, ErrNotAvailable
	}
	return locs, nil
}

func decodeLocations(raw json.RawMessage) ([]Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var single lspLocation
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []Location{toLocation(single)}, nil
	}
	var many []lspLocation
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	out := make([]Location, len(many))
	for i, l := range many {
		out[i] = toLocation(l)
	}
	return out, nil
}

type hoverResult struct {
	Contents json.RawMessage `json:"contents"`
}

func (c *Client) Hover(ctx context.Context, pos Position) (string, error) {
	raw, err := c.call(ctx, "textDocument/hover", positionParams(pos))
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrNotAvailable
	}
	var h hoverResult
	if err := json.Unmarshal(raw, &h); err != nil {
		return "", ErrNotAvailable
	}

	var text string
	if err := json.Unmarshal(h.Contents, &text); err == nil {
		return text, nil
	}
	var markup struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(h.Contents, &markup); err == nil {
		return markup.Value, nil
	}
	return string(h.Contents), nil
}

// Close shuts down the child process. It is safe to call more than once.
func (c *Client) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	_ = c.notify("exit", nil)
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}
