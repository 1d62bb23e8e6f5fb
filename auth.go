package monica

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/NicholasRalph243/open-monica/monrsa"
)

// Verifier checks a username/password pair on behalf of a client host. The
// production system delegates this to an external service such as RADIUS.
type Verifier interface {
	// Verify reports whether the credentials are valid.
	Verify(username, password, host string) bool
}

// VerifierFunc is an adapter to allow ordinary functions to be used as
// Verifier.
type VerifierFunc func(username, password, host string) bool

// Verify implements Verifier.
func (f VerifierFunc) Verify(username, password, host string) bool {
	return f(username, password, host)
}

// StaticVerifier returns a Verifier backed by a fixed username to password
// map. Stored passwords may be plaintext or bcrypt hashes.
func StaticVerifier(users map[string]string) Verifier {
	return VerifierFunc(func(username, password, _ string) bool {
		stored, ok := users[username]
		if !ok {
			return false
		}
		if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
			return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
		}
		return stored == password
	})
}

// resolveCredentials resolves the raw credential fields of a mutating
// command to a verified identity, or "" if no strategy succeeds. Strategies
// are tried in order: the session keypair (if one was generated), the
// persistent server key, then plaintext. A decryption format error means the
// strategy does not apply, not that authentication failed. Every overall
// failure costs the configured fixed delay, local to this call.
func (s *session) resolveCredentials(rawUser, rawPass string) string {
	if s.sessionKey != nil {
		if user, pass, ok := decryptPair(s.sessionKey, rawUser, rawPass); ok &&
			s.srv.verifyCredentials(user, pass, s.host) {
			return user
		}
	}

	if key, err := s.srv.persistentKey(); err == nil {
		if user, pass, ok := decryptPair(key, rawUser, rawPass); ok &&
			s.srv.verifyCredentials(user, pass, s.host) {
			return user
		}
	}

	if s.srv.verifyCredentials(rawUser, rawPass, s.host) {
		return rawUser
	}

	time.Sleep(s.srv.authFailDelay)
	return ""
}

// decryptPair decrypts both credential fields with one key. Format errors
// and empty results disqualify the strategy.
func decryptPair(key *monrsa.Key, rawUser, rawPass string) (string, string, bool) {
	user, err := key.Decrypt(rawUser)
	if err != nil {
		return "", "", false
	}
	pass, err := key.Decrypt(rawPass)
	if err != nil {
		return "", "", false
	}
	if user == "" || pass == "" {
		return "", "", false
	}
	return user, pass, true
}
