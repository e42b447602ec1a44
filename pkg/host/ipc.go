package host

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bastiangx/typeflow/pkg/complete"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameSize guards against a corrupt length header eating all memory.
const maxFrameSize = 4 << 20

var errClosed = errors.New("host: connection closed")

// Client is the msgpack IPC implementation of Host. Frames are
// length-prefixed (4 bytes little endian) msgpack values.
type Client struct {
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  io.Writer

	pendingMu sync.Mutex
	pending   map[string]chan *inbound

	events  chan Event
	timeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient creates a host client on the given reader/writer pair, usually
// stdin/stdout. timeout bounds each outgoing round-trip.
func NewClient(r io.Reader, w io.Writer, timeout time.Duration) *Client {
	return &Client{
		reader:  bufio.NewReader(r),
		writer:  w,
		pending: make(map[string]chan *inbound),
		events:  make(chan Event, 64),
		timeout: timeout,
		closed:  make(chan struct{}),
	}
}

// Events returns the channel carrying editor events in arrival order.
// The channel closes when the editor side goes away.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Run reads inbound frames until EOF, routing responses to their waiting
// requests and events to the Events channel. Blocks; run it on its own
// goroutine or as the main loop.
func (c *Client) Run() error {
	defer c.Close()
	for {
		frame, err := c.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			select {
			case <-c.closed:
				return nil
			default:
			}
			return err
		}

		if frame.Ev != "" {
			c.dispatchEvent(frame)
			continue
		}
		if frame.ID == "" {
			log.Warn("dropping frame with no ev and no id")
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[frame.ID]
		delete(c.pending, frame.ID)
		c.pendingMu.Unlock()
		if !ok {
			// response arrived after its request timed out
			log.Debugf("late response for request %s", frame.ID)
			continue
		}
		ch <- frame
	}
}

// Close tears the connection down. Pending requests fail, the events
// channel closes. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
		close(c.events)
	})
}

func (c *Client) dispatchEvent(frame *inbound) {
	ev := Event{
		Kind:  frame.Ev,
		Char:  frame.Char,
		Bufnr: frame.Bufnr,
		Item:  frame.Item,
	}
	select {
	case c.events <- ev:
	default:
		// the dispatcher is wedged; dropping beats blocking the reader
		log.Warnf("event queue full, dropping %s", ev.Kind)
	}
}

func (c *Client) readFrame() (*inbound, error) {
	var size uint32
	if err := binary.Read(c.reader, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size == 0 || size > maxFrameSize {
		return nil, fmt.Errorf("bad frame size %d", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return nil, err
	}
	frame := &inbound{}
	if err := msgpack.Unmarshal(buf, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (c *Client) writeFrame(req *request) error {
	data, err := msgpack.Marshal(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := binary.Write(c.writer, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err = c.writer.Write(data)
	return err
}

// call performs one request/response round-trip.
func (c *Client) call(ctx context.Context, req *request) (*inbound, error) {
	select {
	case <-c.closed:
		return nil, errClosed
	default:
	}

	req.ID = uuid.NewString()
	ch := make(chan *inbound, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = ch
	c.pendingMu.Unlock()

	if err := c.writeFrame(req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, errClosed
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("host: %s: %s", req.Method, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("host: %s timed out after %v", req.Method, c.timeout)
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

// notify sends a request without waiting for a response.
func (c *Client) notify(req *request) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}
	return c.writeFrame(req)
}

// CursorPosition implements Host.
func (c *Client) CursorPosition(ctx context.Context) (Position, error) {
	resp, err := c.call(ctx, &request{Method: methodCursor})
	if err != nil {
		return Position{}, err
	}
	if resp.Pos == nil {
		return Position{}, fmt.Errorf("host: cursor response missing position")
	}
	return *resp.Pos, nil
}

// ResumeInput implements Host.
func (c *Client) ResumeInput(ctx context.Context, col int) (string, error) {
	resp, err := c.call(ctx, &request{Method: methodResumeInput, Col: col})
	if err != nil {
		return "", err
	}
	return resp.Input, nil
}

// CompleteOption implements Host.
func (c *Client) CompleteOption(ctx context.Context) (*complete.Option, error) {
	resp, err := c.call(ctx, &request{Method: methodCompleteOption})
	if err != nil {
		return nil, err
	}
	if resp.Option == nil {
		return nil, fmt.Errorf("host: completeOption response missing option")
	}
	return resp.Option, nil
}

// ShowCompletion implements Host.
func (c *Client) ShowCompletion(ctx context.Context, items []complete.Item, col int) error {
	_, err := c.call(ctx, &request{Method: methodShow, Items: items, Col: col})
	return err
}

// HideCompletion implements Host. Fire and forget, hiding a menu that is
// already gone is harmless.
func (c *Client) HideCompletion(ctx context.Context) error {
	return c.notify(&request{Method: methodHide})
}

// BufferOption implements Host.
func (c *Client) BufferOption(ctx context.Context, bufnr int, name string) (string, error) {
	resp, err := c.call(ctx, &request{Method: methodBufferOption, Bufnr: bufnr, Name: name})
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Echo implements Host.
func (c *Client) Echo(ctx context.Context, msg string) error {
	return c.notify(&request{Method: methodEcho, Msg: msg})
}
