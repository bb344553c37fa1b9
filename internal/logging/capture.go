package logging

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// DefaultTailSize is the stderr tail kept for a child when none is set.
const DefaultTailSize = 4096

// CaptureConfig configures capture of one child stream.
type CaptureConfig struct {
	Stream    string    // "stdout" or "stderr"
	Dest      io.Writer // where the data goes, nil to only capture
	StripANSI bool
	TailSize  int // bytes of tail to keep, 0 for none
	Logger    *slog.Logger
}

// Capture receives a child's output stream and routes it to the
// destination, the tail buffer and any handlers.
type Capture struct {
	mu       sync.Mutex
	config   CaptureConfig
	dest     io.Writer
	tail     *RingBuffer
	handlers []func(stream string, data []byte)
	written  int64
}

// NewCapture creates a capture for one stream.
func NewCapture(cfg CaptureConfig) *Capture {
	c := &Capture{config: cfg, dest: cfg.Dest}
	if cfg.TailSize > 0 {
		c.tail = NewRingBuffer(cfg.TailSize)
	}
	if c.config.Logger == nil {
		c.config.Logger = Discard()
	}
	return c
}

// Write implements io.Writer. It always accepts all of p so the child is
// never blocked on a full pipe; a failing destination is logged once and
// then skipped.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := p
	if c.config.StripANSI {
		data = StripANSI(data)
	}
	c.written += int64(len(data))

	if c.tail != nil {
		_, _ = c.tail.Write(data)
	}
	if c.dest != nil {
		if _, err := c.dest.Write(data); err != nil {
			c.config.Logger.Warn("dropping child output", "stream", c.config.Stream, "error", err)
			c.dest = nil
		}
	}
	for _, h := range c.handlers {
		h(c.config.Stream, data)
	}
	return len(p), nil
}

// AddHandler adds a callback for captured data.
func (c *Capture) AddHandler(h func(stream string, data []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Tail returns the last n captured bytes.
func (c *Capture) Tail(n int) []byte {
	if c.tail == nil {
		return nil
	}
	return c.tail.Read(n)
}

// Written returns the number of bytes routed so far.
func (c *Capture) Written() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

// Pump copies r into c until EOF. A closed pipe counts as EOF.
func Pump(r io.Reader, c *Capture) error {
	_, err := io.Copy(c, r)
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

// StripANSI removes CSI (ESC [) and OSC (ESC ]) escape sequences.
func StripANSI(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != 0x1b || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		switch data[i+1] {
		case '[':
			// Parameters run until a final byte in 0x40-0x7E.
			i += 2
			for i < len(data) && (data[i] < 0x40 || data[i] > 0x7e) {
				i++
			}
		case ']':
			// Terminated by BEL or ST (ESC \).
			i += 2
			for i < len(data) {
				if data[i] == 0x07 {
					break
				}
				if data[i] == 0x1b && i+1 < len(data) && data[i+1] == '\\' {
					i++
					break
				}
				i++
			}
		default:
			out = append(out, data[i])
		}
	}
	return out
}
