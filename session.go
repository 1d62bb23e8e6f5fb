package monica

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasRalph243/open-monica/monrsa"
)

// session serves one client connection for its entire life. All command
// handling runs on the session's own goroutine; the only externally driven
// mutation is stop, delivered by the supervisor's shutdown broadcast.
type session struct {
	srv  *Server
	conn Conn
	name string // client host:port
	host string
	r    *bufio.Reader
	w    *bufio.Writer
	log  zerolog.Logger

	// turnMu is held from the verb line through the last argument line of a
	// command so a full turn reads from the stream atomically.
	turnMu sync.Mutex

	// sessionKey is generated at most once, by the rsa command, and is
	// stable for the life of the connection.
	sessionKey *monrsa.Key

	running   atomic.Bool
	closeOnce sync.Once
}

func newSession(srv *Server, conn Conn) *session {
	name := conn.RemoteAddr().String()
	host := name
	if h, _, err := net.SplitHostPort(name); err == nil {
		host = h
	}
	s := &session{
		srv:  srv,
		conn: conn,
		name: name,
		host: host,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
		log:  srv.log.With().Str("client", name).Logger(),
	}
	s.running.Store(true)
	return s
}

// run is the session main loop: read one verb line, dispatch, repeat until
// end of stream, an exit command, a handler failure or a stop request.
func (s *session) run() {
	defer s.close()
	s.log.Debug().Msg("client connected")

	for s.running.Load() {
		s.turnMu.Lock()
		verb, err := s.readLine()
		if err != nil {
			s.turnMu.Unlock()
			if !errors.Is(err, io.EOF) && s.running.Load() {
				s.log.Debug().Err(err).Msg("connection lost")
			}
			return
		}
		herr := s.dispatch(verb)
		s.turnMu.Unlock()
		if herr != nil {
			s.log.Error().Err(herr).Str("verb", verb).Msg("request failed")
			return
		}
	}
}

// dispatch matches the verb case-insensitively against the fixed vocabulary.
// Unrecognised verbs are silently ignored: lenient clients depend on it.
func (s *session) dispatch(verb string) error {
	switch strings.ToLower(verb) {
	case verbNames:
		return s.names()
	case verbPoll:
		return s.poll()
	case verbPoll2:
		return s.poll2()
	case verbSince:
		return s.since()
	case verbBetween:
		return s.between()
	case verbPreceding, verbPreceeding:
		// Original interface had a spelling error; both forms are served.
		return s.preceding()
	case verbFollowing:
		return s.following()
	case verbDetails:
		return s.details()
	case verbSet:
		return s.set()
	case verbAck:
		return s.ack()
	case verbShelve:
		return s.shelve()
	case verbAlarms:
		return s.alarms()
	case verbAllAlarms:
		return s.allAlarms()
	case verbRSA:
		return s.rsa()
	case verbRSAPersist:
		return s.rsaPersist()
	case verbLeapSeconds:
		return s.leapSeconds()
	case verbExit:
		s.running.Store(false)
		return nil
	default:
		s.log.Debug().Str("verb", verb).Msg("ignoring unrecognised command")
		return nil
	}
}

// stop asks the session to terminate and interrupts a blocked read.
func (s *session) stop() {
	s.running.Store(false)
	s.conn.SetReadDeadline(time.Now())
}

// close releases the connection and deregisters the session. Safe to reach
// from any exit path; the registry and counter are updated exactly once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.running.Store(false)
		s.w.Flush()
		if err := s.conn.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing connection")
		}
		s.srv.deregister(s)
		s.log.Debug().Msg("client disconnected")
	})
}

// readLine blocks for the next newline-terminated line and returns it with
// surrounding whitespace trimmed.
func (s *session) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readCount reads a declared item count. A line that is not a non-negative
// integer returns ok=false; the command must then abort with one error line.
func (s *session) readCount() (int, bool, error) {
	line, err := s.readLine()
	if err != nil {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(line)
	if convErr != nil || n < 0 {
		return 0, false, nil
	}
	return n, true, nil
}

func (s *session) send(text string) {
	s.w.WriteString(text)
	s.w.WriteByte('\n')
}

func (s *session) sendf(format string, args ...any) {
	fmt.Fprintf(s.w, format, args...)
	s.w.WriteByte('\n')
}

func (s *session) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("write to client: %w", err)
	}
	return nil
}
