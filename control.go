package monica

import (
	"strings"

	"github.com/NicholasRalph243/open-monica/bat"
)

// set assigns client-supplied values to points. The command body is:
// username, password, count, then count lines of name<TAB>type<TAB>value.
// The full body is consumed from the stream whatever the authentication
// outcome, so the framing stays intact for the next command.
func (s *session) set() error {
	rawUser, err := s.readLine()
	if err != nil {
		return err
	}
	rawPass, err := s.readLine()
	if err != nil {
		return err
	}
	identity := s.resolveCredentials(rawUser, rawPass)
	if identity == "" {
		s.log.Warn().Str("verb", verbSet).Str("user", rawUser).Msg("failed authentication attempt")
	}

	n, ok, err := s.readCount()
	if err != nil {
		return err
	}
	if !ok {
		s.send(replyBadCount)
		return s.flush()
	}

	for i := 0; i < n; i++ {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		tokens := strings.Split(line, "\t")
		if len(tokens) < 3 {
			s.send(replyExpectSetItem)
			continue
		}
		name := tokens[0]
		if !s.srv.points.Exists(name) {
			s.send(replyNoSuchPoint)
			continue
		}
		value, perr := parseSetValue(tokens[1], tokens[2])
		if perr != nil {
			s.sendf("? Parse error reading type/value: %v", perr)
			continue
		}
		if identity == "" {
			s.sendf("%s\t%s", name, replyError)
			continue
		}
		if err := s.srv.points.Set(name, Sample{Time: bat.Now(), Value: value}); err != nil {
			s.log.Warn().Err(err).Str("point", name).Msg("set rejected by store")
			s.sendf("%s\t%s", name, replyError)
			continue
		}
		s.log.Debug().Str("point", name).Str("user", identity).Msg("point value assigned")
		s.sendf("%s\t%s", name, replyOK)
	}
	return s.flush()
}

// ack sets the acknowledgement state of alarms.
func (s *session) ack() error {
	return s.setAlarmFlag(verbAck, s.srv.alarms.SetAcknowledged)
}

// shelve sets the shelved state of alarms.
func (s *session) shelve() error {
	return s.setAlarmFlag(verbShelve, s.srv.alarms.SetShelved)
}

// setAlarmFlag is the shared body of ack and shelve: username, password,
// count, then count lines of name<TAB>boolean.
func (s *session) setAlarmFlag(verb string, apply func(string, bool, string, bat.Time) error) error {
	rawUser, err := s.readLine()
	if err != nil {
		return err
	}
	rawPass, err := s.readLine()
	if err != nil {
		return err
	}
	identity := s.resolveCredentials(rawUser, rawPass)
	if identity == "" {
		s.log.Warn().Str("verb", verb).Str("user", rawUser).Msg("failed authentication attempt")
	}

	now := bat.Now()
	n, ok, err := s.readCount()
	if err != nil {
		return err
	}
	if !ok {
		s.send(replyBadCount)
		return s.flush()
	}

	for i := 0; i < n; i++ {
		line, err := s.readLine()
		if err != nil {
			return err
		}
		tokens := strings.Split(line, "\t")
		if len(tokens) < 2 {
			s.send(replyExpectAckItem)
			continue
		}
		name := tokens[0]
		if !s.srv.points.Exists(name) {
			s.send(replyNoSuchPoint)
			continue
		}
		if identity == "" {
			s.sendf("%s\t%s", name, replyError)
			continue
		}
		value := parseWireBool(tokens[1])
		if err := apply(name, value, identity, now); err != nil {
			s.log.Warn().Err(err).Str("point", name).Msg("alarm update rejected")
			s.sendf("%s\t%s", name, replyError)
			continue
		}
		s.log.Debug().Str("point", name).Bool("value", value).Str("user", identity).
			Str("verb", verb).Msg("alarm state changed")
		s.sendf("%s\t%s", name, replyOK)
	}
	return s.flush()
}
