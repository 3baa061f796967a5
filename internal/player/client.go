package player

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"mpvnotify/internal/props"
	logx "mpvnotify/pkg/logx"
)

// Client speaks mpv's JSON IPC protocol over a unix socket and implements
// Source. One goroutine (Run) owns the read side; writes are serialized
// with a mutex.
type Client struct {
	name string
	conn net.Conn
	log  logx.Logger

	signals chan Signal

	writeMu sync.Mutex

	reqMu   sync.Mutex
	reqSeq  int64
	pending map[int64]chan response
	// shots maps request IDs of in-flight screenshot commands to their
	// capture sequence numbers.
	shots map[int64]uint64
}

const (
	signalBuffer   = 512
	requestTimeout = 5 * time.Second
)

// request/response/event wire formats. mpv sends one JSON object per line;
// responses carry request_id, events carry event.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id,omitempty"`
	Async     bool  `json:"async,omitempty"`
}

type response struct {
	Err  string          `json:"error"`
	Data json.RawMessage `json:"data"`
}

type incoming struct {
	Event     string          `json:"event"`
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Args      []string        `json:"args"`
	Err       string          `json:"error"`
	RequestID int64           `json:"request_id"`
}

// Dial connects to the player's IPC socket. clientName is used for option
// namespacing and msg-level matching, not sent to the player.
func Dial(socketPath, clientName string, log logx.Logger) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("player: dial %s: %w", socketPath, err)
	}
	return &Client{
		name:    clientName,
		conn:    conn,
		log:     log,
		signals: make(chan Signal, signalBuffer),
		pending: map[int64]chan response{},
		shots:   map[int64]uint64{},
	}, nil
}

// Name returns the client name used for namespaced options and msg-level.
func (c *Client) Name() string { return c.name }

func (c *Client) Signals() <-chan Signal { return c.signals }

// Close tears down the socket; Run returns shortly after.
func (c *Client) Close() error { return c.conn.Close() }

// Run reads the socket until the connection drops or ctx is cancelled,
// converting lines into signals. The signals channel closes on return; a
// Shutdown signal is emitted first when the player went away.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.signals)

	// Unblock the reader when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	r := bufio.NewReaderSize(c.conn, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			c.failPending(err)
			if ctx.Err() != nil {
				return nil
			}
			c.push(ctx, Shutdown{})
			return nil
		}
		c.handleLine(ctx, line)
	}
}

func (c *Client) handleLine(ctx context.Context, line []byte) {
	var in incoming
	if err := json.Unmarshal(line, &in); err != nil {
		c.log.Warn("player: undecodable IPC line", logx.Err(err))
		return
	}

	if in.Event == "" {
		c.dispatchResponse(ctx, in)
		return
	}

	switch in.Event {
	case "property-change":
		id := props.ID(in.ID)
		if id < 0 || int(id) >= props.Count() {
			return
		}
		c.push(ctx, PropertyChange{ID: id, Value: decodeValue(props.Lookup(id).Kind, in.Data)})
	case "client-message":
		c.push(ctx, ClientMessage{Args: in.Args})
	case "seek":
		c.push(ctx, Seek{})
	case "video-reconfig":
		c.push(ctx, VideoReconfig{})
	case "shutdown":
		c.push(ctx, Shutdown{})
	default:
		// Uninteresting core event (start-file, idle, ...). Ignored.
	}
}

func (c *Client) dispatchResponse(ctx context.Context, in incoming) {
	c.reqMu.Lock()
	ch, waiting := c.pending[in.RequestID]
	delete(c.pending, in.RequestID)
	seq, isShot := c.shots[in.RequestID]
	delete(c.shots, in.RequestID)
	c.reqMu.Unlock()

	if waiting {
		ch <- response{Err: in.Err, Data: in.Data}
		return
	}
	if isShot {
		c.push(ctx, decodeScreenshot(seq, in))
		return
	}
	// Replies to fire-and-forget commands (observe, unobserve) land here.
	if in.Err != "" && in.Err != "success" {
		c.log.Warn("player: command failed", logx.String("err", in.Err))
	}
}

func (c *Client) push(ctx context.Context, sig Signal) {
	select {
	case c.signals <- sig:
	case <-ctx.Done():
	}
}

func (c *Client) failPending(err error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- response{Err: err.Error()}
	}
}

func (c *Client) send(req request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(b)
	return err
}

func (c *Client) nextID() int64 {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.reqSeq++
	return c.reqSeq
}

// command issues a request and waits for its reply.
func (c *Client) command(cmd ...any) (json.RawMessage, error) {
	id := c.nextID()
	ch := make(chan response, 1)

	c.reqMu.Lock()
	c.pending[id] = ch
	c.reqMu.Unlock()

	if err := c.send(request{Command: cmd, RequestID: id}); err != nil {
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Err != "" && resp.Err != "success" {
			return nil, errors.New(resp.Err)
		}
		return resp.Data, nil
	case <-time.After(requestTimeout):
		c.reqMu.Lock()
		delete(c.pending, id)
		c.reqMu.Unlock()
		return nil, errors.New("player: request timed out")
	}
}

// commandAsync issues a request without waiting; the reply is handled by
// the read loop (or dropped when nothing registered interest).
func (c *Client) commandAsync(id int64, cmd ...any) error {
	return c.send(request{Command: cmd, RequestID: id, Async: true})
}

func (c *Client) Observe(id props.ID) error {
	spec := props.Lookup(id)
	return c.commandAsync(c.nextID(), "observe_property", int64(id), spec.Name)
}

func (c *Client) Unobserve(id props.ID) error {
	return c.commandAsync(c.nextID(), "unobserve_property", int64(id))
}

func (c *Client) RequestScreenshot(seq uint64, flags string) error {
	id := c.nextID()

	c.reqMu.Lock()
	c.shots[id] = seq
	c.reqMu.Unlock()

	if err := c.commandAsync(id, "screenshot-raw", flags, "rgba"); err != nil {
		c.reqMu.Lock()
		delete(c.shots, id)
		c.reqMu.Unlock()
		return err
	}
	return nil
}

func (c *Client) HasProperty(name string) (bool, error) {
	data, err := c.command("get_property", "property-list")
	if err != nil {
		return false, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return false, err
	}
	for _, p := range list {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}

// decodeValue converts a property-change payload into the declared kind.
// Anything undecodable is treated as absent, matching the player reporting
// the property as unavailable.
func decodeValue(kind props.Kind, data json.RawMessage) props.Value {
	if len(data) == 0 || string(data) == "null" {
		return props.Value{}
	}

	switch kind {
	case props.KindString:
		var s string
		if json.Unmarshal(data, &s) != nil {
			return props.Value{}
		}
		return props.StringValue(s)
	case props.KindBool:
		var b bool
		if json.Unmarshal(data, &b) != nil {
			return props.Value{}
		}
		return props.BoolValue(b)
	case props.KindInt:
		var f float64
		if json.Unmarshal(data, &f) != nil {
			return props.Value{}
		}
		return props.IntValue(int64(math.Round(f)))
	case props.KindFloat:
		var f float64
		if json.Unmarshal(data, &f) != nil {
			return props.Value{}
		}
		return props.FloatValue(f)
	case props.KindNode:
		var node any
		if json.Unmarshal(data, &node) != nil {
			return props.Value{}
		}
		return props.NodeValue(node)
	default:
		return props.Value{}
	}
}

// decodeScreenshot turns a screenshot-raw reply into a completion signal.
// The raw buffer travels base64-encoded over the IPC socket.
func decodeScreenshot(seq uint64, in incoming) Signal {
	if in.Err != "" && in.Err != "success" {
		return ScreenshotFailed{Seq: seq, Err: errors.New(in.Err)}
	}

	var payload struct {
		Data   string `json:"data"`
		W      int    `json:"w"`
		H      int    `json:"h"`
		Stride int    `json:"stride"`
		Format string `json:"format"`
	}
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		return ScreenshotFailed{Seq: seq, Err: err}
	}
	if payload.W <= 0 || payload.H <= 0 || payload.Stride <= 0 || payload.Data == "" {
		return ScreenshotFailed{Seq: seq, Err: errors.New("screenshot reply has bad parameters")}
	}

	buf, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return ScreenshotFailed{Seq: seq, Err: fmt.Errorf("screenshot data: %w", err)}
	}
	if len(buf) < payload.Stride*payload.H {
		return ScreenshotFailed{Seq: seq, Err: errors.New("screenshot buffer shorter than stride*height")}
	}

	return ScreenshotReady{Seq: seq, Data: buf, W: payload.W, H: payload.H, Stride: payload.Stride}
}
