// Package southbound accepts one TCP connection per switch and runs a
// session per connection, each parsing OpenFlow-shaped packet-in frames
// (grounded on github.com/netrack/openflow's ofp.PacketIn/PacketOut/FlowMod
// wire types) and replying with packet-outs and flow-mods computed by the
// brain, dispatcher, forwarder, rewriter and RTMP handler packages.
package southbound

import (
	"context"
	"errors"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sdnproj/p2p-controller/internal/brain"
	"github.com/sdnproj/p2p-controller/internal/config"
	"github.com/sdnproj/p2p-controller/internal/forwarder"
	"github.com/sdnproj/p2p-controller/internal/logger"
	"github.com/sdnproj/p2p-controller/internal/stats"
)

// Server is the southbound TCP listener. Each accepted connection gets its
// own session and its own goroutine, supervised by an errgroup so that one
// switch's session erroring does not take down the others — only Stop or a
// listener-level failure ends the group. Panics are not recovered.
type Server struct {
	cfg      *config.Config
	registry *brain.Registry
	fwd      *forwarder.Forwarder
	counters *stats.Counters

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// New creates an unstarted Server.
func New(cfg *config.Config) *Server {
	return &Server{
		cfg:      cfg,
		registry: brain.NewRegistry(),
		fwd:      forwarder.New(),
		counters: stats.New(),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Counters exposes the server's packet/flow counters for a status endpoint
// or test assertions.
func (s *Server) Counters() *stats.Counters { return s.counters }

// Start begins listening and launches the accept loop. Safe to call once.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("southbound server already started")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.ln = ln
	ctx, cancel := context.WithCancel(context.Background())
	group, _ := errgroup.WithContext(ctx)
	s.group = group
	s.cancel = cancel
	s.mu.Unlock()

	logger.Logger().WithField("addr", ln.Addr().String()).Info("southbound server listening")
	group.Go(s.acceptLoop)
	return nil
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		sess := newSession(conn, s.cfg, s.registry, s.fwd, s.counters)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.group.Go(func() error {
			defer func() {
				conn.Close()
				s.registry.Remove(sess.datapathID)
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			return sess.run()
		})
	}
}

// Stop closes the listener and waits for every in-flight session to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.ln == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.ln
	s.ln = nil
	group := s.group
	cancel := s.cancel
	s.mu.Unlock()

	_ = ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if group != nil {
		if err := group.Wait(); err != nil {
			return err
		}
	}
	logger.Logger().Info("southbound server stopped")
	return nil
}

// Addr returns the bound listener address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
