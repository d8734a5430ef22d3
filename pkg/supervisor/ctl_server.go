package supervisor

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"taskmaster/pkg/logger"
	"taskmaster/pkg/metrics"
	"taskmaster/pkg/utils"
)

// Server accepts client connections on the control address and hands
// each one to a session. A buffered slot channel bounds the number of
// sessions processed at once, the rest queue in the listen backlog.
type Server struct {
	sup  *Supervisor
	lis  net.Listener
	log  *zap.SugaredLogger
	pool chan struct{}
	wg   sync.WaitGroup

	network string
	address string
}

// NewServer binds the control address. For unix sockets a leftover
// socket file from a dead daemon is removed first, the pid file check
// in the daemon path guarantees no live daemon owns it.
func NewServer(sup *Supervisor, listen string, poolSize int) (*Server, error) {
	network, address, err := utils.SplitAddr(listen)
	if err != nil {
		return nil, err
	}

	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0o750); err != nil {
			return nil, err
		}
		if _, err := os.Stat(address); err == nil {
			_ = os.Remove(address)
		}
	}

	lis, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}

	if poolSize <= 0 {
		poolSize = 1
	}
	return &Server{
		sup:     sup,
		lis:     lis,
		log:     logger.Logging("server"),
		pool:    make(chan struct{}, poolSize),
		network: network,
		address: address,
	}, nil
}

// Addr returns the bound listener address.
func (srv *Server) Addr() net.Addr {
	return srv.lis.Addr()
}

// Serve accepts sessions until the listener is closed.
func (srv *Server) Serve() {
	srv.log.Infow("control server listening", "network", srv.network, "addr", srv.address)

	for {
		conn, err := srv.lis.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-srv.sup.ShutdownRequested():
				return
			default:
			}
			srv.log.Warnw("accept failed", "error", err)
			continue
		}

		srv.pool <- struct{}{}
		srv.wg.Add(1)
		metrics.SessionsActive.Inc()

		go func(conn net.Conn) {
			defer func() {
				metrics.SessionsActive.Dec()
				<-srv.pool
				srv.wg.Done()
			}()
			newSession(srv.sup, conn).Handle()
		}(conn)
	}
}

// Close stops accepting, waits for in-flight sessions and cleans up
// the unix socket file.
func (srv *Server) Close() {
	_ = srv.lis.Close()
	srv.wg.Wait()
	if srv.network == "unix" {
		_ = os.Remove(srv.address)
	}
	srv.log.Info("control server stopped")
}
