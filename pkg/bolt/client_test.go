package bolt

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks just enough Bolt 4.4 to answer the client. Queries
// containing BOOM fail at RUN, queries containing LATE fail while streaming.
type fakeServer struct {
	ln net.Listener

	mu    sync.Mutex
	sigs  []byte
	hello map[string]any
	runs  [][]any
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{ln: ln}
	t.Cleanup(func() { ln.Close() })
	go fs.serve()
	return fs
}

func (fs *fakeServer) addr() string { return fs.ln.Addr().String() }

func (fs *fakeServer) serve() {
	for {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		go fs.handle(conn)
	}
}

func (fs *fakeServer) seen() []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]byte(nil), fs.sigs...)
}

func (fs *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	hs := make([]byte, 20)
	if _, err := io.ReadFull(conn, hs); err != nil || !bytes.Equal(hs[:4], boltMagic) {
		return
	}
	if _, err := conn.Write([]byte{0x00, 0x00, 0x04, 0x04}); err != nil {
		return
	}

	failed, late := false, false
	for {
		sig, fields, err := readMessage(conn)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.sigs = append(fs.sigs, sig)
		fs.mu.Unlock()

		switch sig {
		case MsgHello:
			md := metadata(fields)
			fs.mu.Lock()
			fs.hello = md
			fs.mu.Unlock()
			if md["credentials"] == "wrong" {
				_ = writeMessage(conn, MsgFailure, map[string]any{
					"code":    "Neo.ClientError.Security.Unauthorized",
					"message": "bad credentials",
				})
				return
			}
			_ = writeMessage(conn, MsgSuccess, map[string]any{"server": "Fake/4.4", "connection_id": "bolt-1"})
		case MsgRun:
			fs.mu.Lock()
			fs.runs = append(fs.runs, fields)
			fs.mu.Unlock()
			q, _ := fields[0].(string)
			if strings.Contains(q, "BOOM") {
				failed = true
				_ = writeMessage(conn, MsgFailure, map[string]any{
					"code":    "Neo.ClientError.Statement.SyntaxError",
					"message": "Invalid input",
				})
				continue
			}
			late = strings.Contains(q, "LATE")
			_ = writeMessage(conn, MsgSuccess, map[string]any{"fields": []any{"x"}})
		case MsgPull:
			if failed {
				_ = writeMessage(conn, MsgIgnored)
				continue
			}
			_ = writeMessage(conn, MsgRecord, []any{int64(1)})
			if late {
				failed = true
				_ = writeMessage(conn, MsgFailure, map[string]any{
					"code":    "Neo.ClientError.Statement.TypeError",
					"message": "expected Integer",
				})
				continue
			}
			_ = writeMessage(conn, MsgRecord, []any{int64(2)})
			_ = writeMessage(conn, MsgSuccess, map[string]any{"has_more": false})
		case MsgReset:
			failed = false
			_ = writeMessage(conn, MsgSuccess, map[string]any{})
		case MsgGoodbye:
			return
		}
	}
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func dialFake(t *testing.T, fs *fakeServer, cfg Config) *Client {
	t.Helper()
	cfg.Address = fs.addr()
	cfg.Timeout = 5 * time.Second
	c, err := Dial(context.Background(), cfg, quietLog())
	require.NoError(t, err)
	return c
}

func TestDialAndExecute(t *testing.T) {
	fs := startFakeServer(t)
	c := dialFake(t, fs, Config{Username: "neo4j", Password: "secret", Database: "fuzz"})
	defer c.Close()

	assert.Equal(t, "Fake/4.4", c.Server())

	out, err := c.Execute(context.Background(), "MATCH (v0:Person) RETURN v0;")
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, 2, out.Rows)

	fs.mu.Lock()
	hello, runs := fs.hello, fs.runs
	fs.mu.Unlock()
	assert.Equal(t, "basic", hello["scheme"])
	assert.Equal(t, "neo4j", hello["principal"])
	assert.Equal(t, "secret", hello["credentials"])
	assert.Equal(t, "cypherfuzz/1.0", hello["user_agent"])

	require.Len(t, runs, 1)
	require.Len(t, runs[0], 3)
	assert.Equal(t, "MATCH (v0:Person) RETURN v0;", runs[0][0])
	assert.Equal(t, map[string]any{}, runs[0][1])
	assert.Equal(t, map[string]any{"db": "fuzz"}, runs[0][2])
}

func TestDial_NoCredentials(t *testing.T) {
	fs := startFakeServer(t)
	c := dialFake(t, fs, Config{})
	defer c.Close()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "none", fs.hello["scheme"])
	assert.NotContains(t, fs.hello, "principal")
}

func TestExecute_FailureResetsConnection(t *testing.T) {
	tests := []struct {
		name  string
		query string
		rows  int
		err   string
	}{
		{"rejected at RUN", "MATCH (v0) RETURN BOOM;", 0, "Neo.ClientError.Statement.SyntaxError: Invalid input"},
		{"failed while streaming", "RETURN LATE;", 1, "Neo.ClientError.Statement.TypeError: expected Integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := startFakeServer(t)
			c := dialFake(t, fs, Config{})
			defer c.Close()

			out, err := c.Execute(context.Background(), tt.query)
			require.NoError(t, err)
			assert.False(t, out.OK())
			assert.Equal(t, []string{tt.err}, out.Errors)
			assert.Equal(t, tt.rows, out.Rows)
			assert.Contains(t, fs.seen(), MsgReset)

			// the connection is usable again after RESET
			out, err = c.Execute(context.Background(), "RETURN 1;")
			require.NoError(t, err)
			assert.True(t, out.OK())
			assert.Equal(t, 2, out.Rows)
		})
	}
}

func TestDial_AuthFailure(t *testing.T) {
	fs := startFakeServer(t)
	_, err := Dial(context.Background(), Config{Address: fs.addr(), Username: "neo4j", Password: "wrong"}, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestDial_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), Config{Address: addr, Timeout: time.Second}, quietLog())
	assert.Error(t, err)
}

func TestExecute_CanceledContext(t *testing.T) {
	fs := startFakeServer(t)
	c := dialFake(t, fs, Config{})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Execute(ctx, "RETURN 1;")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_ServerGone(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// completes HELLO, then hangs up
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		hs := make([]byte, 20)
		_, _ = io.ReadFull(conn, hs)
		_, _ = conn.Write([]byte{0x00, 0x00, 0x04, 0x04})
		_, _, _ = readMessage(conn)
		_ = writeMessage(conn, MsgSuccess, map[string]any{})
		conn.Close()
	}()

	c, err := Dial(context.Background(), Config{Address: ln.Addr().String(), Timeout: 5 * time.Second}, quietLog())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(context.Background(), "RETURN 1;")
	assert.Error(t, err)
}

func TestClose_SendsGoodbye(t *testing.T) {
	fs := startFakeServer(t)
	c := dialFake(t, fs, Config{})
	require.NoError(t, c.Close())

	assert.Eventually(t, func() bool {
		return bytes.Contains(fs.seen(), []byte{MsgGoodbye})
	}, 2*time.Second, 10*time.Millisecond)
}
