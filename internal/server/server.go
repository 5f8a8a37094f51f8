package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/resp"
	"go.uber.org/zap"
)

// Server accepts client connections and runs their commands on an Engine
type Server struct {
	cfg    config.ServerConfig
	engine *Engine
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	peers    map[*Peer]struct{}
	wg       sync.WaitGroup
}

// New creates a server. Nothing is started until Serve or ListenAndServe
func New(cfg config.ServerConfig, engine *Engine, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		peers:  make(map[*Peer]struct{}),
	}
}

// ListenAndServe listens on the configured host and port and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	address := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or ln is closed, then shuts down:
// clients get up to ShutdownTimeout to finish buffered commands before they are closed
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening on", zap.String("address", ln.Addr().String()))

	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	stop := context.AfterFunc(ctx, func() {
		ln.Close() //nolint:errcheck
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}

		peer := NewPeer(conn, s.cfg.RateLimit)
		s.track(peer)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(peer)
			s.handleConnection(connCtx, peer)
		}()
	}

	s.shutdown(cancelConns)

	return nil
}

// Addr returns the listening address, nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) track(p *Peer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(p *Peer) {
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
}

// shutdown stops reading from clients and waits for them; stragglers are closed
func (s *Server) shutdown(cancelConns context.CancelFunc) {
	s.logger.Info("shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	s.mu.Lock()
	for p := range s.peers {
		p.StopReading() //nolint:errcheck
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.logger.Info("all connections closed gracefully")
		return
	case <-timer.C:
	}

	s.mu.Lock()
	s.logger.Warn("shutdown timed out, closing connections", zap.Int("connections", len(s.peers)))
	for p := range s.peers {
		p.Close() //nolint:errcheck
	}
	s.mu.Unlock()

	cancelConns()
	<-done
}

// handleConnection serves one client until it disconnects or an I/O error occurs.
// Frame, protocol and command errors are answered and the connection keeps going
func (s *Server) handleConnection(ctx context.Context, peer *Peer) {
	log := s.logger.With(zap.String("client", peer.ID()))

	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", peer.RemoteAddr()))
	}

	s.engine.clientConnected()

	defer func() {
		peer.Flush() //nolint:errcheck
		peer.Close() //nolint:errcheck
		s.engine.clientDisconnected()

		// log connection close
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected")
		}
	}()

	for {
		result, err := peer.Next(ctx, s.engine)
		if err != nil {
			if !resp.IsRecoverable(err) {
				if !isClosedConn(err) {
					log.Warn("connection error", zap.Error(err))
				}
				return
			}

			if resp.KindOf(err) != resp.KindCommand {
				s.engine.metrics.ProtocolError()
				log.Debug("protocol error", zap.Error(err))
			}
			result = resp.MakeErrorFrom(err)
		}

		if err := peer.Send(result); err != nil {
			log.Warn("error writing response", zap.Error(err))
			return
		}
	}
}

// isClosedConn reports errors that only mean the connection is gone
func isClosedConn(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
