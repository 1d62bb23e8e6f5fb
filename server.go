package monica

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasRalph243/open-monica/monrsa"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithListener sets the listener for the server.
func WithListener(ln Listener) ServerOption {
	return func(s *Server) {
		s.listener = ln
	}
}

// WithPointStore sets the point catalogue and time-series collaborator.
func WithPointStore(store PointStore) ServerOption {
	return func(s *Server) {
		if store != nil {
			s.points = store
		}
	}
}

// WithAlarmStore sets the alarm registry collaborator.
func WithAlarmStore(store AlarmStore) ServerOption {
	return func(s *Server) {
		if store != nil {
			s.alarms = store
		}
	}
}

// WithVerifier sets the external credential verifier. Without one, every
// authenticated command is denied.
func WithVerifier(v Verifier) ServerOption {
	return func(s *Server) {
		s.verifier = v
	}
}

// WithLogger sets the server logger. The default discards everything.
func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithAcceptTimeout sets how long a single accept call may block before the
// loop rechecks the stop flag.
func WithAcceptTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.acceptTimeout = d
		}
	}
}

// WithAuthFailureDelay sets the fixed delay imposed on every failed
// credential resolution.
func WithAuthFailureDelay(d time.Duration) ServerOption {
	return func(s *Server) {
		if d >= 0 {
			s.authFailDelay = d
		}
	}
}

// WithSessionKeyBits sets the modulus size of generated RSA keys.
func WithSessionKeyBits(bits int) ServerOption {
	return func(s *Server) {
		if bits > 0 {
			s.sessionKeyBits = bits
		}
	}
}

// WithPersistentKey supplies the long-lived server keypair. Without one, a
// key is generated on first use and lives for the process.
func WithPersistentKey(key *monrsa.Key) ServerOption {
	return func(s *Server) {
		s.persistKey = key
	}
}

// Server owns the listening socket, the set of live sessions and the global
// shutdown sequence for the ASCII interface.
type Server struct {
	listener       Listener
	points         PointStore
	alarms         AlarmStore
	verifier       Verifier
	log            zerolog.Logger
	acceptTimeout  time.Duration
	authFailDelay  time.Duration
	sessionKeyBits int

	persistOnce sync.Once
	persistKey  *monrsa.Key
	persistErr  error

	mu         sync.Mutex
	running    bool
	sessions   map[*session]struct{}
	numClients int

	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server with the given options.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		points:         nopPointStore{},
		alarms:         nopAlarmStore{},
		log:            zerolog.Nop(),
		acceptTimeout:  100 * time.Millisecond,
		authFailDelay:  time.Second,
		sessionKeyBits: monrsa.DefaultKeyBits,
		sessions:       make(map[*session]struct{}),
		shutdownCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Serve accepts client connections until the server is shut down. Each
// accepted connection is served by its own session goroutine. Accept
// timeouts are normal polling, not failures.
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrNoListener
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerRunning
	}
	s.running = true
	s.mu.Unlock()

	for {
		select {
		case <-s.shutdownCh:
			return nil
		default:
		}

		s.listener.SetDeadline(time.Now().Add(s.acceptTimeout))
		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.shutdownCh:
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		sess := newSession(s, conn)
		s.register(sess)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run()
		}()
	}
}

// Shutdown stops the accept loop, asks every live session to stop and waits
// for them to finish. The wait is bounded by the context and by a grace
// period of twice the accept timeout, after which remaining sessions are
// abandoned to close on their own.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	live := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	close(s.shutdownCh)
	if s.listener != nil {
		s.listener.Close()
	}
	for _, sess := range live {
		sess.stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * s.acceptTimeout):
		return nil
	}
}

// NumClients returns the number of currently connected clients.
func (s *Server) NumClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numClients
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the server's listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
	s.numClients++
}

// deregister is called exactly once per session, from its close path.
func (s *Server) deregister(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
	s.numClients--
}

// persistentKey returns the process-wide keypair, generating it on first
// use.
func (s *Server) persistentKey() (*monrsa.Key, error) {
	s.persistOnce.Do(func() {
		if s.persistKey != nil {
			return
		}
		s.persistKey, s.persistErr = monrsa.Generate(s.sessionKeyBits)
	})
	return s.persistKey, s.persistErr
}

// verifyCredentials consults the configured verifier, denying everything
// when none is configured.
func (s *Server) verifyCredentials(username, password, host string) bool {
	if s.verifier == nil {
		return false
	}
	return s.verifier.Verify(username, password, host)
}
