package monica

import (
	"fmt"
	"net"
	"time"
)

// Conn represents one client connection.
type Conn interface {
	net.Conn
}

// Listener accepts client connections. SetDeadline bounds a single Accept
// call so the accept loop can poll for shutdown.
type Listener interface {
	// Accept waits for and returns the next connection.
	Accept() (Conn, error)

	// Close closes the listener.
	Close() error

	// Addr returns the listener's network address.
	Addr() net.Addr

	// SetDeadline sets the deadline for future Accept calls.
	SetDeadline(t time.Time) error
}

type tcpConn struct {
	net.Conn
}

type tcpListener struct {
	*net.TCPListener
}

func (l *tcpListener) Accept() (Conn, error) {
	conn, err := l.TCPListener.Accept()
	if err != nil {
		return nil, err
	}
	return &tcpConn{Conn: conn}, nil
}

// ListenTCP binds a TCP listener on the given address. A bind failure is
// returned to the caller and never retried.
func ListenTCP(address string) (Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return &tcpListener{TCPListener: ln.(*net.TCPListener)}, nil
}
