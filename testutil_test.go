package monica_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/NicholasRalph243/open-monica"
	"github.com/NicholasRalph243/open-monica/bat"
	"github.com/NicholasRalph243/open-monica/memstore"
)

// Fixture timestamps for the temperature samples.
const (
	sampleT1 = bat.Time(0x1000)
	sampleT2 = bat.Time(0x1100)
	sampleT3 = bat.Time(0x1200)
)

// newTestStore builds the store fixture shared by the protocol tests: a
// point with history, a point with no data, and an alarm point.
func newTestStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	store.AddPoint(PointDetail{
		Name:        "site.env.temperature",
		Units:       "C",
		Description: "Outside air temperature",
		Period:      10 * time.Second,
	})
	store.AddPoint(PointDetail{Name: "site.env.wind", Units: "km/h"})
	store.AddPoint(PointDetail{Name: "site.power.ups", Description: "UPS status"})
	store.AddAlarm(Alarm{Point: "site.power.ups", Priority: 2, Guidance: "Check UPS"})

	for i, v := range []float64{20.1, 20.5, 21.0} {
		require.NoError(t, store.Ingest("site.env.temperature", Sample{
			Time:  sampleT1 + bat.Time(i)*(sampleT2-sampleT1),
			Value: v,
		}))
	}
	return store
}

// newTestServer starts a server on a loopback port and returns its address.
func newTestServer(t *testing.T, opts ...ServerOption) (*Server, string, *memstore.Store) {
	t.Helper()
	store := newTestStore(t)

	ln, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)

	base := []ServerOption{
		WithListener(ln),
		WithPointStore(store),
		WithAlarmStore(store),
		WithVerifier(StaticVerifier(map[string]string{"observer": "secret"})),
		WithAcceptTimeout(20 * time.Millisecond),
		WithAuthFailureDelay(50 * time.Millisecond),
		WithSessionKeyBits(512),
	}
	srv := NewServer(append(base, opts...)...)

	go srv.Serve()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return srv, ln.Addr().String(), store
}

// rawConn drives the wire protocol directly, bypassing the Client.
type rawConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialRaw(t *testing.T, addr string) *rawConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &rawConn{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *rawConn) sendLines(lines ...string) {
	c.t.Helper()
	for _, line := range lines {
		_, err := c.conn.Write([]byte(line + "\n"))
		require.NoError(c.t, err)
	}
}

func (c *rawConn) readLine() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return line[:len(line)-1]
}

func (c *rawConn) readLines(n int) []string {
	c.t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c.readLine())
	}
	return out
}
