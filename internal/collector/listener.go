package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"motion-collector/internal/platform/metrics"
)

// MaxDatagramSize bounds a single inbound datagram.
const MaxDatagramSize = 4096

// Dispatcher consumes decoded messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// Listener receives sensor samples and label events over UDP.
type Listener struct {
	conn    net.PacketConn
	d       Dispatcher
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Listen binds a UDP socket on addr. Messages are decoded and handed to d in
// arrival order. m may be nil.
func Listen(addr string, d Dispatcher, log *slog.Logger, m *metrics.Metrics) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	return &Listener{conn: conn, d: d, log: log, metrics: m}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Serve reads datagrams until ctx is cancelled, then closes the socket and
// returns nil. Undecodable datagrams are dropped.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read udp: %w", err)
		}

		msg, err := Decode(buf[:n])
		if err != nil {
			l.metrics.IncDecodeFailures()
			l.log.Debug("dropping datagram",
				slog.String("from", from.String()),
				slog.Int("bytes", n),
				slog.String("error", err.Error()))
			continue
		}
		if msg.Label != nil {
			msg.Label.From = from.String()
		}
		l.d.Dispatch(ctx, msg)
	}
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
