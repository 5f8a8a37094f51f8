package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

// Peer represents a connected client.
// It wraps a network connection and provides synchronized methods for reading and writing RESP-encoded data
type Peer struct {
	id      ulid.ULID
	conn    net.Conn
	reader  *resp.Decoder
	parser  *resp.Parser
	writer  resp.Writer
	limiter *rate.Limiter // nil when commands are not rate limited
	mu      sync.Mutex
}

// flushingReader flushes pending replies before it blocks on the connection,
// so a pipelined batch is answered with one write
type flushingReader struct {
	p *Peer
}

func (r flushingReader) Read(b []byte) (int, error) {
	if err := r.p.Flush(); err != nil {
		return 0, err
	}
	return r.p.conn.Read(b)
}

// NewPeer initializes a new client peer from a network connection.
// rateLimit caps commands per second, 0 means unlimited
func NewPeer(conn net.Conn, rateLimit int) *Peer {
	p := &Peer{
		id:     ulid.Make(),
		conn:   conn,
		writer: resp.NewEncoder(conn),
	}
	p.reader = resp.NewDecoder(flushingReader{p: p})
	p.parser = resp.NewParser(p.reader)

	if rateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return p
}

// ID returns the unique connection id
func (p *Peer) ID() string {
	return p.id.String()
}

// RemoteAddr returns the client address
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Next reads one command and runs it on exec.
// Waiting for the rate limiter is interrupted by ctx
func (p *Peer) Next(ctx context.Context, exec resp.Executor) (resp.Value, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return resp.Value{}, err
		}
	}
	return p.parser.Parse(exec)
}

// Send encodes and buffers a RESP value for the client.
// This method is thread-safe and can be called from multiple goroutines
func (p *Peer) Send(v resp.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Write(v)
}

// Flush sends all buffered data to the client
func (p *Peer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Flush()
}

// StopReading makes the next blocking read fail. Commands already buffered still run
func (p *Peer) StopReading() error {
	return p.conn.SetReadDeadline(time.Now())
}

// Close terminates the underlying network connection
func (p *Peer) Close() error {
	return p.conn.Close()
}
