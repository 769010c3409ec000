package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/basinlabs/pgwire-gateway/internal/backend"
	"github.com/basinlabs/pgwire-gateway/internal/protocol"
	"github.com/basinlabs/pgwire-gateway/internal/systemquery"
)

// readChunkSize is how much is read from the socket per syscall; partial
// frames accumulate in serveLoop's growable pending buffer across reads.
const readChunkSize = 8192

// ConnDeps bundles the shared, process-wide collaborators every per-socket
// protocol.Conn needs. The DataAPI client may be pooled across connections
// (spec §5); only the transaction id inside backend.Client is per-connection.
type ConnDeps struct {
	API           backend.DataAPI
	ClusterARN    string
	SecretARN     string
	DatabaseName  string
	ServerVersion string
	Logger        *slog.Logger
	Metrics       *Metrics
}

// slogAdapter satisfies both backend.Logger and protocol.Logger with a
// single *slog.Logger.
type slogAdapter struct{ *slog.Logger }

func (s slogAdapter) Debug(msg string, args ...interface{}) { s.Logger.Debug(msg, args...) }
func (s slogAdapter) Warn(msg string, args ...interface{})  { s.Logger.Warn(msg, args...) }
func (s slogAdapter) Error(msg string, args ...interface{}) { s.Logger.Error(msg, args...) }

// NewHandler builds a Handler that drives each accepted net.Conn through a
// freshly constructed protocol.Conn state machine, per spec §3's "connection
// exclusively owns its session state and backend client" rule.
func NewHandler(deps ConnDeps) Handler {
	return func(ctx context.Context, conn net.Conn) error {
		logger := slogAdapter{deps.Logger}
		bk := backend.New(deps.API, deps.ClusterARN, deps.SecretARN, deps.DatabaseName, logger)
		responder := systemquery.New(deps.ServerVersion, deps.DatabaseName)

		protoConn := protocol.NewConn(protocol.Config{
			Backend:       bk,
			Responder:     responder,
			ServerVersion: deps.ServerVersion,
			DatabaseName:  deps.DatabaseName,
			ProcessID:     rand.Int31(),
			SecretKey:     rand.Int31(),
			Logger:        logger,
		})

		if deps.Metrics != nil {
			deps.Metrics.ConnectionOpened()
			defer deps.Metrics.ConnectionClosed()
		}

		// Roll back a transaction left open when the loop ends without a
		// Terminate (read/write error, forced shutdown); no-op otherwise.
		defer bk.Cleanup(context.Background())

		err := serveLoop(ctx, conn, protoConn)
		if err != nil && !errors.Is(err, context.Canceled) && deps.Metrics != nil {
			deps.Metrics.RecordError()
		}
		return err
	}
}

// serveLoop is the H/B/G read-extract-dispatch-write cycle spec §2's data
// flow describes: bytes arrive, are appended to a per-connection buffer and
// fed to the state machine, replies are written back.
func serveLoop(ctx context.Context, conn net.Conn, protoConn *protocol.Conn) error {
	var pending []byte
	readBuf := make([]byte, readChunkSize)

	for {
		for {
			frame, rest, ok, err := protocol.Extract(pending, protoConn.ExpectStartupFrame())
			if err != nil {
				return err
			}
			if !ok {
				pending = rest
				break
			}
			pending = rest

			outcome, err := protoConn.HandleFrame(ctx, frame)
			if err != nil {
				return err
			}

			for _, msg := range outcome.Messages {
				if err := writeAll(conn, msg); err != nil {
					return err
				}
			}

			if outcome.Close {
				return nil
			}
		}

		if err := conn.SetReadDeadline(time.Now().Add(IdleTimeout())); err != nil {
			return err
		}

		n, err := conn.Read(readBuf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		pending = append(pending, readBuf[:n]...)
	}
}

func writeAll(conn net.Conn, buf []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(IdleTimeout())); err != nil {
		return err
	}

	for len(buf) > 0 {
		n, err := conn.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
