package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startServer serves a fresh engine on a random local port until the test ends
func startServer(t *testing.T, cfg config.ServerConfig) string {
	t.Helper()

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = time.Second
	}

	srv := New(cfg, setupEngine(t, ""), zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return ln.Addr().String()
}

func newClient(t *testing.T, addr string) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
	})
	t.Cleanup(func() { rdb.Close() }) //nolint:errcheck

	return rdb
}

// rawConn is a plain TCP client reading replies line by line
type rawConn struct {
	conn net.Conn
	rd   *bufio.Reader
}

func dial(t *testing.T, addr string) *rawConn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	return &rawConn{conn: conn, rd: bufio.NewReader(conn)}
}

func (c *rawConn) send(t *testing.T, s string) {
	t.Helper()

	_, err := io.WriteString(c.conn, s)
	require.NoError(t, err)
}

func (c *rawConn) line(t *testing.T) string {
	t.Helper()

	l, err := c.rd.ReadString('\n')
	require.NoError(t, err)
	return l
}

func TestServer_GoRedis(t *testing.T) {
	addr := startServer(t, config.ServerConfig{})
	rdb := newClient(t, addr)
	ctx := context.Background()

	pong, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	require.NoError(t, rdb.Set(ctx, "key", "value", 0).Err())

	val, err := rdb.Get(ctx, "key").Result()
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	_, err = rdb.Get(ctx, "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, rdb.Set(ctx, "short", "v", 50*time.Millisecond).Err())
	time.Sleep(100 * time.Millisecond)
	_, err = rdb.Get(ctx, "short").Result()
	assert.ErrorIs(t, err, redis.Nil)

	echo, err := rdb.Echo(ctx, "hello").Result()
	require.NoError(t, err)
	assert.Equal(t, "hello", echo)

	info, err := rdb.Info(ctx, "replication").Result()
	require.NoError(t, err)
	assert.Contains(t, info, "role:master")
}

func TestServer_ConcurrentClients(t *testing.T) {
	addr := startServer(t, config.ServerConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := 0; c < 2; c++ {
		rdb := newClient(t, addr)

		wg.Add(1)
		go func(client int) {
			defer wg.Done()

			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("client%d:key%d", client, i)
				val := fmt.Sprintf("v%d", i)

				assert.NoError(t, rdb.Set(ctx, key, val, 0).Err())

				got, err := rdb.Get(ctx, key).Result()
				assert.NoError(t, err)
				assert.Equal(t, val, got)
			}
		}(c)
	}

	wg.Wait()
}

func TestServer_ErrorsKeepConnection(t *testing.T) {
	addr := startServer(t, config.ServerConfig{})
	c := dial(t, addr)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not an array", "+OK\r\n", "-ERR Protocol error: expected array of bulk strings\r\n"},
		{"empty array", "*0\r\n", "-ERR Protocol error: empty command\r\n"},
		{"bad length", "$abc\r\n", "-ERR Protocol error: invalid length at offset 1\r\n"},
		{"unknown command", "*1\r\n$3\r\nFOO\r\n", "-ERR unknown command 'FOO'\r\n"},
		{"bad ttl", "*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nPX\r\n$1\r\nx\r\n", "-ERR value is not an integer or out of range\r\n"},
		{"still alive", "*1\r\n$4\r\nPING\r\n", "+PONG\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.send(t, tt.input)
			assert.Equal(t, tt.want, c.line(t))
		})
	}
}

func TestServer_Pipelining(t *testing.T) {
	addr := startServer(t, config.ServerConfig{})
	c := dial(t, addr)

	c.send(t, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n"+
		"*2\r\n$3\r\nGET\r\n$1\r\na\r\n"+
		"*2\r\n$3\r\nGET\r\n$1\r\nb\r\n")

	assert.Equal(t, "+OK\r\n", c.line(t))
	assert.Equal(t, "+1\r\n", c.line(t))
	assert.Equal(t, "$-1\r\n", c.line(t))
}

func TestServer_SplitFrames(t *testing.T) {
	addr := startServer(t, config.ServerConfig{})
	c := dial(t, addr)

	// a complete command followed by the start of the next one
	c.send(t, "*1\r\n$4\r\nPING\r\n*2\r\n$4\r\nEC")
	assert.Equal(t, "+PONG\r\n", c.line(t))

	c.send(t, "HO\r\n$2\r\nhi\r\n")
	assert.Equal(t, "+hi\r\n", c.line(t))
}

func TestServer_RateLimit(t *testing.T) {
	addr := startServer(t, config.ServerConfig{RateLimit: 1000})
	c := dial(t, addr)

	for i := 0; i < 10; i++ {
		c.send(t, "*1\r\n$4\r\nPING\r\n")
		assert.Equal(t, "+PONG\r\n", c.line(t))
	}
}

func TestServer_Shutdown(t *testing.T) {
	srv := New(config.ServerConfig{ShutdownTimeout: time.Second}, setupEngine(t, ""), zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	c := dial(t, ln.Addr().String())
	c.send(t, "*1\r\n$4\r\nPING\r\n")
	require.Equal(t, "+PONG\r\n", c.line(t))
	assert.Equal(t, ln.Addr().String(), srv.Addr().String())

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	// the idle client was disconnected
	_, err = c.rd.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
}
