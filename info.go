package monica

import (
	"fmt"

	"github.com/NicholasRalph243/open-monica/bat"
	"github.com/NicholasRalph243/open-monica/monrsa"
)

// alarms returns the current priority alarms.
func (s *session) alarms() error {
	return s.sendAlarms(s.srv.alarms.Current())
}

// allAlarms returns every known alarm.
func (s *session) allAlarms() error {
	return s.sendAlarms(s.srv.alarms.All())
}

func (s *session) sendAlarms(list []Alarm) error {
	s.sendf("%d", len(list))
	for _, a := range list {
		s.send(a.WireString())
	}
	return s.flush()
}

// rsa returns the public exponent and modulus of the session keypair,
// generating the keypair on first request. Clients may cache the parameters
// for the life of the connection.
func (s *session) rsa() error {
	if s.sessionKey == nil {
		key, err := monrsa.Generate(s.srv.sessionKeyBits)
		if err != nil {
			return fmt.Errorf("generate session key: %w", err)
		}
		s.sessionKey = key
	}
	s.send(s.sessionKey.E().String())
	s.send(s.sessionKey.N().String())
	return s.flush()
}

// rsaPersist returns the public parameters of the long-lived server key.
func (s *session) rsaPersist() error {
	key, err := s.srv.persistentKey()
	if err != nil {
		return fmt.Errorf("persistent key: %w", err)
	}
	s.send(key.E().String())
	s.send(key.N().String())
	return s.flush()
}

// leapSeconds returns the DUTC dictionary: a count line, then one
// epochMillis<TAB>offset line per entry.
func (s *session) leapSeconds() error {
	entries := bat.LeapSeconds()
	s.sendf("%d", len(entries))
	for _, e := range entries {
		s.sendf("%d\t%d", e.Date.UnixMilli(), e.Offset)
	}
	return s.flush()
}
