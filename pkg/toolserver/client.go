package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/surf/pkg/logging"
)

// ErrNotConnected is returned by calls made while no worker is up.
var ErrNotConnected = errors.New("tool server not connected")

// closeGracePeriod is how long Close waits for the worker to exit before
// killing it.
const closeGracePeriod = 5 * time.Second

// Client owns the lifecycle of a tool-server worker subprocess. The
// connection is established by Connect, reused across calls, and supports
// reconnecting after a clean Close. The client never retries individual tool
// calls; retry and fallback policy belongs to the dispatcher.
type Client struct {
	cfg Config
	log *logging.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	stderr    io.ReadCloser
	pending   map[int64]chan *Message
	msgID     int64
	connected bool

	serverInfo *ServerInfo
}

// NewClient creates a client for the worker described by cfg. No process is
// spawned until Connect is called.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("worker command is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger, _ := logging.NewLogger("toolserver")
	return &Client{
		cfg: cfg,
		log: logger,
	}, nil
}

// Connect spawns the worker and performs the initialize handshake. Calling
// Connect while already connected is a no-op, so connection establishment is
// idempotent and never creates a second worker.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	if len(c.cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.cfg.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to get stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to get stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to start worker: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = stdout
	c.stderr = stderr
	c.pending = make(map[int64]chan *Message)
	c.connected = true
	c.mu.Unlock()

	go c.readResponses(stdout)

	if err := c.initialize(ctx); err != nil {
		c.Close()
		return err
	}

	c.log.Infof("connected to worker %q (pid %d)", c.cfg.Command, cmd.Process.Pid)
	return nil
}

// Connected reports whether a worker is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// readResponses routes worker responses to their pending calls. Runs until
// the worker's stdout closes.
func (c *Client) readResponses(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.log.Debugf("skipping unparseable worker line: %v", err)
			continue
		}

		if msg.ID != nil {
			c.mu.Lock()
			if ch, ok := c.pending[*msg.ID]; ok {
				ch <- &msg
				delete(c.pending, *msg.ID)
			}
			c.mu.Unlock()
		}
	}
}

func (c *Client) nextID() int64 {
	return atomic.AddInt64(&c.msgID, 1)
}

// call sends one request and waits for its correlated response. The
// configured timeout bounds the wait when the caller's context carries no
// deadline of its own.
func (c *Client) call(ctx context.Context, method string, params any) (*Message, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	stdin := c.stdin
	c.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	id := c.nextID()

	var paramsBytes json.RawMessage
	if params != nil {
		var err error
		paramsBytes, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	msg := Message{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  paramsBytes,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	respCh := make(chan *Message, 1)
	c.mu.Lock()
	c.pending[id] = respCh
	c.mu.Unlock()

	if _, err := stdin.Write(append(data, '\n')); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to write message: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrNotConnected
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// initialize performs the protocol handshake and sends the initialized
// notification.
func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"clientInfo": map[string]any{
			"name":    "surf",
			"version": "1.0.0",
		},
	}

	resp, err := c.call(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error: %s", resp.Error.Message)
	}

	var result struct {
		ServerInfo  ServerInfo `json:"serverInfo"`
		ProtocolVer string     `json:"protocolVersion"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("failed to parse initialize result: %w", err)
	}
	result.ServerInfo.ProtocolVer = result.ProtocolVer

	c.mu.Lock()
	c.serverInfo = &result.ServerInfo
	stdin := c.stdin
	c.mu.Unlock()

	notif := Message{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}
	data, _ := json.Marshal(notif)
	stdin.Write(append(data, '\n'))

	return nil
}

// ListTools fetches the worker's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	resp, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list error: %s", resp.Error.Message)
	}

	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes one tool on the worker. It returns ErrNotConnected when no
// worker is up, and a *ToolError carrying the worker's error payload when the
// tool itself fails.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	resp, err := c.call(ctx, "tools/call", toolCallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ToolError{
			Tool:    name,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}

	var result ToolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tool result: %w", err)
	}
	if result.IsError {
		return nil, &ToolError{Tool: name, Message: result.Text()}
	}
	return &result, nil
}

// ServerInfo returns the connected worker's identity, or nil when not
// connected.
func (c *Client) ServerInfo() *ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Close shuts the worker down: pending calls are failed, the pipes are
// closed, and the process gets a grace period before being killed. A closed
// client can connect again.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false

	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = nil

	c.stdin.Close()
	c.stdout.Close()
	c.stderr.Close()
	cmd := c.cmd
	c.cmd = nil
	c.serverInfo = nil
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(closeGracePeriod):
		cmd.Process.Kill()
	}

	c.log.Infof("worker closed")
	return nil
}
