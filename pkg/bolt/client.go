// Package bolt implements a Bolt v4.4 client that sends generated queries to
// a graph database and reports how the server responded.
package bolt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/cypherfuzz/pkg/fuzz"
)

// Protocol version proposed during the handshake.
const BoltV4_4 = 0x0404

// Message types
const (
	MsgHello   byte = 0x01
	MsgGoodbye byte = 0x02
	MsgReset   byte = 0x0F
	MsgRun     byte = 0x10
	MsgPull    byte = 0x3F

	// Response messages
	MsgSuccess byte = 0x70
	MsgRecord  byte = 0x71
	MsgIgnored byte = 0x7E
	MsgFailure byte = 0x7F
)

const maxChunkSize = 0xFFFF

var boltMagic = []byte{0x60, 0x60, 0xB0, 0x17}

// ErrProtocol is returned when the server sends something the client cannot
// interpret in the current state.
var ErrProtocol = errors.New("bolt: protocol violation")

// Config holds Bolt connection settings.
type Config struct {
	Address   string
	Username  string
	Password  string
	Database  string
	UserAgent string
	// Timeout bounds every exchange that has no earlier context deadline.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:   "localhost:7687",
		UserAgent: "cypherfuzz/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client is a single Bolt connection. It is safe for concurrent use but
// serializes queries; run one client per worker for parallelism.
type Client struct {
	cfg  Config
	log  *logrus.Entry
	conn net.Conn
	r    *bufio.Reader

	mu      sync.Mutex
	version uint32
	server  string
}

// Dial connects, performs the handshake and authenticates with HELLO.
func Dial(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	defaults := DefaultConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if log == nil {
		log = logrus.WithField("component", "bolt")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}
	c := &Client{cfg: cfg, log: log.WithField("address", cfg.Address), conn: conn, r: bufio.NewReader(conn)}

	if err := c.setDeadline(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.hello(); err != nil {
		conn.Close()
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"server": c.server, "version": fmt.Sprintf("%d.%d", c.version&0xFF, c.version>>8&0xFF)}).
		Debug("bolt connection established")
	return c, nil
}

// Server is the agent string the server sent in its HELLO response.
func (c *Client) Server() string { return c.server }

func (c *Client) setDeadline(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.conn.SetDeadline(deadline)
}

func (c *Client) handshake() error {
	req := make([]byte, 0, 20)
	req = append(req, boltMagic...)
	// one proposal followed by three empty slots
	req = append(req, 0x00, 0x00, 0x04, 0x04)
	req = append(req, make([]byte, 12)...)
	if _, err := c.conn.Write(req); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	resp := make([]byte, 4)
	if _, err := io.ReadFull(c.r, resp); err != nil {
		return fmt.Errorf("failed to read handshake response: %w", err)
	}
	c.version = uint32(resp[2])<<8 | uint32(resp[3])
	if c.version == 0 {
		return fmt.Errorf("%w: server rejected protocol version 4.4", ErrProtocol)
	}
	return nil
}

func (c *Client) hello() error {
	extra := map[string]any{"user_agent": c.cfg.UserAgent}
	if c.cfg.Username != "" {
		extra["scheme"] = "basic"
		extra["principal"] = c.cfg.Username
		extra["credentials"] = c.cfg.Password
	} else {
		extra["scheme"] = "none"
	}
	if err := writeMessage(c.conn, MsgHello, extra); err != nil {
		return fmt.Errorf("failed to send HELLO: %w", err)
	}
	sig, fields, err := readMessage(c.r)
	if err != nil {
		return fmt.Errorf("failed to read HELLO response: %w", err)
	}
	switch sig {
	case MsgSuccess:
		if md := metadata(fields); md != nil {
			c.server, _ = md["server"].(string)
		}
		return nil
	case MsgFailure:
		return fmt.Errorf("authentication failed: %s", failureText(fields))
	}
	return fmt.Errorf("%w: unexpected HELLO response 0x%02X", ErrProtocol, sig)
}

// Execute sends RUN and PULL for query and drains the result. A FAILURE from
// the server becomes an outcome error and the connection is RESET so the next
// query starts clean. Transport problems are returned as errors.
func (c *Client) Execute(ctx context.Context, query string) (fuzz.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fuzz.Outcome{}, err
	}
	if err := c.setDeadline(ctx); err != nil {
		return fuzz.Outcome{}, err
	}

	extra := map[string]any{}
	if c.cfg.Database != "" {
		extra["db"] = c.cfg.Database
	}
	// RUN and PULL are pipelined; the server answers both in order
	if err := writeMessage(c.conn, MsgRun, query, map[string]any{}, extra); err != nil {
		return fuzz.Outcome{}, fmt.Errorf("failed to send RUN: %w", err)
	}
	if err := writeMessage(c.conn, MsgPull, map[string]any{"n": int64(-1)}); err != nil {
		return fuzz.Outcome{}, fmt.Errorf("failed to send PULL: %w", err)
	}

	var out fuzz.Outcome
	sig, fields, err := readMessage(c.r)
	if err != nil {
		return fuzz.Outcome{}, fmt.Errorf("failed to read RUN response: %w", err)
	}
	switch sig {
	case MsgSuccess:
	case MsgFailure:
		out.Errors = append(out.Errors, failureText(fields))
	default:
		return fuzz.Outcome{}, fmt.Errorf("%w: unexpected RUN response 0x%02X", ErrProtocol, sig)
	}

	for {
		sig, fields, err = readMessage(c.r)
		if err != nil {
			return fuzz.Outcome{}, fmt.Errorf("failed to read PULL response: %w", err)
		}
		if sig != MsgRecord {
			break
		}
		out.Rows++
	}
	switch sig {
	case MsgSuccess, MsgIgnored:
	case MsgFailure:
		// errors raised while streaming, e.g. a runtime type error
		out.Errors = append(out.Errors, failureText(fields))
	default:
		return fuzz.Outcome{}, fmt.Errorf("%w: unexpected PULL response 0x%02X", ErrProtocol, sig)
	}

	if !out.OK() {
		c.log.WithField("error", out.Errors[0]).Trace("query rejected")
		if err := c.reset(); err != nil {
			return fuzz.Outcome{}, err
		}
	}
	return out, nil
}

func (c *Client) reset() error {
	if err := writeMessage(c.conn, MsgReset); err != nil {
		return fmt.Errorf("failed to send RESET: %w", err)
	}
	sig, fields, err := readMessage(c.r)
	if err != nil {
		return fmt.Errorf("failed to read RESET response: %w", err)
	}
	if sig != MsgSuccess {
		return fmt.Errorf("%w: RESET answered with 0x%02X %s", ErrProtocol, sig, failureText(fields))
	}
	return nil
}

// Close sends GOODBYE and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := writeMessage(c.conn, MsgGoodbye); err != nil {
		c.log.WithError(err).Debug("GOODBYE not delivered")
	}
	return c.conn.Close()
}

func metadata(fields []any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	md, _ := fields[0].(map[string]any)
	return md
}

// failureText renders FAILURE metadata as "code: message".
func failureText(fields []any) string {
	md := metadata(fields)
	code, _ := md["code"].(string)
	msg, _ := md["message"].(string)
	switch {
	case code == "" && msg == "":
		return "unknown failure"
	case code == "":
		return msg
	}
	return code + ": " + msg
}

// writeMessage encodes a message structure and sends it in chunks followed
// by the zero-size terminator.
func writeMessage(w io.Writer, sig byte, fields ...any) error {
	buf := []byte{byte(0xB0 + len(fields)), sig}
	for _, f := range fields {
		buf = encodePackStreamValueInto(buf, f)
	}

	out := make([]byte, 0, len(buf)+2*(len(buf)/maxChunkSize+2))
	for len(buf) > 0 {
		n := min(len(buf), maxChunkSize)
		out = append(out, byte(n>>8), byte(n))
		out = append(out, buf[:n]...)
		buf = buf[n:]
	}
	out = append(out, 0x00, 0x00)
	_, err := w.Write(out)
	return err
}

// readMessage reads chunks until the zero-size terminator and decodes the
// message structure. Empty messages are NOOPs and are skipped.
func readMessage(r io.Reader) (byte, []any, error) {
	for {
		var message []byte
		header := make([]byte, 2)
		for {
			if _, err := io.ReadFull(r, header); err != nil {
				return 0, nil, err
			}
			size := int(header[0])<<8 | int(header[1])
			if size == 0 {
				break
			}
			chunk := make([]byte, size)
			if _, err := io.ReadFull(r, chunk); err != nil {
				return 0, nil, err
			}
			message = append(message, chunk...)
		}
		if len(message) == 0 {
			continue
		}

		v, _, err := decodePackStreamValue(message, 0)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		st, ok := v.(Structure)
		if !ok {
			return 0, nil, fmt.Errorf("%w: message is not a structure", ErrProtocol)
		}
		return st.Signature, st.Fields, nil
	}
}
