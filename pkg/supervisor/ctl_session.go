package supervisor

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/logger"
)

const (
	// sessionReadTimeout bounds how long a client may sit on an open
	// connection without sending its command.
	sessionReadTimeout = 30 * time.Second

	sessionWriteTimeout = 10 * time.Second
)

// Session serves exactly one command on one connection, the protocol
// is strictly request/response.
type Session struct {
	sup  *Supervisor
	conn net.Conn
	log  *zap.SugaredLogger
}

func newSession(sup *Supervisor, conn net.Conn) *Session {
	return &Session{
		sup:  sup,
		conn: conn,
		log:  logger.Logging("session"),
	}
}

// Handle reads the command, dispatches it and writes the response.
func (se *Session) Handle() codec.SessionCtl {
	defer func() {
		_ = se.conn.Close()
	}()

	_ = se.conn.SetReadDeadline(time.Now().Add(sessionReadTimeout))

	var cmd codec.Command
	if err := codec.ReadFrame(se.conn, &cmd); err != nil {
		if errors.Is(err, io.EOF) {
			// client connected and left without a command
			return codec.SessionContinue
		}
		se.log.Warnw("bad request", "error", err)
		se.send(&codec.Response{
			Code:    codec.StatusBadInput,
			Message: err.Error(),
		})
		return codec.SessionContinue
	}

	// commands may legitimately take seconds (stop grace, drains)
	_ = se.conn.SetReadDeadline(time.Time{})

	resp, verdict := se.sup.Dispatch(&cmd)
	se.send(resp)
	return verdict
}

func (se *Session) send(resp *codec.Response) {
	_ = se.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	if err := codec.WriteFrame(se.conn, resp); err != nil {
		se.log.Warnw("send response failed", "error", err)
	}
}
