package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// connTracker tracks open connections so shutdown can drain or close them.
type connTracker struct {
	conns  sync.Map
	count  atomic.Int64
	max    int
	logger observability.Logger
}

// trackedConn is an open connection with its metadata.
type trackedConn struct {
	ID         string
	RemoteAddr string
	Opened     time.Time
	conn       net.Conn
}

func newConnTracker(max int, logger observability.Logger) *connTracker {
	if max <= 0 {
		max = DefaultMaxConnections
	}
	return &connTracker{max: max, logger: logger}
}

// add registers conn. It fails once the connection limit is reached.
func (t *connTracker) add(conn net.Conn) (*trackedConn, error) {
	if n := t.count.Add(1); int(n) > t.max {
		t.count.Add(-1)
		return nil, fmt.Errorf("maximum connections reached: %d", t.max)
	}

	tc := &trackedConn{
		ID:         uuid.New().String(),
		RemoteAddr: conn.RemoteAddr().String(),
		Opened:     time.Now(),
		conn:       conn,
	}
	t.conns.Store(tc.ID, tc)

	t.logger.Debug("connection opened",
		observability.String("conn_id", tc.ID),
		observability.String("remote_addr", tc.RemoteAddr),
	)
	return tc, nil
}

// remove forgets a connection. Removing twice is harmless.
func (t *connTracker) remove(id string) {
	if v, loaded := t.conns.LoadAndDelete(id); loaded {
		t.count.Add(-1)
		tc := v.(*trackedConn)
		t.logger.Debug("connection closed",
			observability.String("conn_id", id),
			observability.Duration("open_for", time.Since(tc.Opened)),
		)
	}
}

func (t *connTracker) len() int {
	return int(t.count.Load())
}

// closeAll force-closes every tracked connection.
func (t *connTracker) closeAll() {
	t.conns.Range(func(_, value any) bool {
		tc := value.(*trackedConn)
		if err := tc.conn.Close(); err != nil {
			t.logger.Debug("error closing connection",
				observability.String("conn_id", tc.ID),
				observability.Error(err),
			)
		}
		return true
	})
}
