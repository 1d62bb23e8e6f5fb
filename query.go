package monica

import (
	"fmt"
	"strings"

	"github.com/NicholasRalph243/open-monica/bat"
)

// names returns the full point catalogue: a count line then one name per
// line.
func (s *session) names() error {
	points := s.srv.points.PointNames()
	s.sendf("%d", len(points))
	for _, name := range points {
		s.send(name)
	}
	return s.flush()
}

// poll returns the latest value of each named point.
func (s *session) poll() error {
	n, ok, err := s.readCount()
	if err != nil {
		return err
	}
	if !ok {
		s.send(replyBadCount)
		return s.flush()
	}

	for i := 0; i < n; i++ {
		name, err := s.readLine()
		if err != nil {
			return err
		}
		if !s.srv.points.Exists(name) {
			s.send(replyNoSuchPoint)
			continue
		}
		sample, found := s.srv.points.Latest(name)
		if !found {
			s.sendf("%s\t?\t?", name)
			continue
		}
		s.sendf("%s\t%s\t%s", name, sample.Time, formatValue(sample.Value))
	}
	return s.flush()
}

// poll2 is poll with units and an in-range flag appended.
func (s *session) poll2() error {
	n, ok, err := s.readCount()
	if err != nil {
		return err
	}
	if !ok {
		s.send(replyBadCount)
		return s.flush()
	}

	for i := 0; i < n; i++ {
		name, err := s.readLine()
		if err != nil {
			return err
		}
		detail, found := s.srv.points.Details(name)
		if !s.srv.points.Exists(name) || !found {
			s.send(replyNoSuchPoint)
			continue
		}
		sample, haveData := s.srv.points.Latest(name)
		if !haveData {
			s.sendf("%s\t?\t?\t?\t?", name)
			continue
		}
		units := detail.Units
		if units == "" {
			units = "?"
		}
		s.sendf("%s\t%s\t%s\t%s\t%t", name, sample.Time, formatValue(sample.Value), units, !sample.Alarm)
	}
	return s.flush()
}

// details returns the static description of each named point.
func (s *session) details() error {
	n, ok, err := s.readCount()
	if err != nil {
		return err
	}
	if !ok {
		s.send(replyBadCount)
		return s.flush()
	}

	for i := 0; i < n; i++ {
		name, err := s.readLine()
		if err != nil {
			return err
		}
		detail, found := s.srv.points.Details(name)
		if !found {
			s.send("?")
			continue
		}
		s.sendf("%s\t%s\t%q\t%q", name, formatPeriod(detail.Period), detail.Units, detail.Description)
	}
	return s.flush()
}

// since returns all samples of one point between the given timestamp and
// now. Arguments arrive on a single line: TIMESTAMP NAME [alarms].
func (s *session) since() error {
	line, err := s.readLine()
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		s.send(replyNeedStampName)
		return s.flush()
	}

	start, perr := bat.Parse(fields[0])
	if perr != nil {
		s.send(replyBadStamp)
		return s.flush()
	}

	name := fields[1]
	if !s.srv.points.Exists(name) {
		s.send(replyNoSuchPoint)
		return s.flush()
	}

	withAlarms := len(fields) > 2 && strings.EqualFold(fields[2], "alarms")
	return s.sendRange(name, start, bat.Now(), withAlarms)
}

// between returns all samples of one point inside the given interval. The
// two timestamps are auto-reordered. Arguments arrive on a single line:
// TIMESTAMP TIMESTAMP NAME [alarms].
func (s *session) between() error {
	line, err := s.readLine()
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		s.send(replyNeedTwoStamps)
		return s.flush()
	}

	start, perr := bat.Parse(fields[0])
	if perr != nil {
		s.send(replyBadFirstStamp)
		return s.flush()
	}
	end, perr := bat.Parse(fields[1])
	if perr != nil {
		s.send(replyBadSecondStamp)
		return s.flush()
	}
	if end.Before(start) {
		start, end = end, start
	}

	name := fields[2]
	if !s.srv.points.Exists(name) {
		s.send(replyNoSuchPoint)
		return s.flush()
	}

	withAlarms := len(fields) > 3 && strings.EqualFold(fields[3], "alarms")
	return s.sendRange(name, start, end, withAlarms)
}

func (s *session) sendRange(name string, start, end bat.Time, withAlarms bool) error {
	samples, err := s.srv.points.Range(name, start, end)
	if err != nil {
		return fmt.Errorf("range query for %s: %w", name, err)
	}
	s.sendf("%d", len(samples))
	for _, sample := range samples {
		if withAlarms {
			s.sendf("%s\t%s\t%t", sample.Time, formatValue(sample.Value), sample.Alarm)
		} else {
			s.sendf("%s\t%s", sample.Time, formatValue(sample.Value))
		}
	}
	return s.flush()
}

// preceding returns, for each TIMESTAMP NAME pair, the nearest sample at or
// before the timestamp.
func (s *session) preceding() error {
	return s.nearest(func(name string, t bat.Time) (Sample, bool) {
		return s.srv.points.Preceding(name, t)
	})
}

// following returns, for each TIMESTAMP NAME pair, the nearest sample at or
// after the timestamp.
func (s *session) following() error {
	return s.nearest(func(name string, t bat.Time) (Sample, bool) {
		return s.srv.points.Following(name, t)
	})
}

func (s *session) nearest(query func(string, bat.Time) (Sample, bool)) error {
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
		fields := strings.Fields(line)
		if len(fields) != 2 {
			s.send(replyNeedStampPair)
			continue
		}
		t, perr := bat.Parse(fields[0])
		if perr != nil {
			s.sendf("? Error parsing BAT timestamp %q", fields[0])
			continue
		}
		name := fields[1]
		if !s.srv.points.Exists(name) {
			s.send(replyNoSuchPoint)
			continue
		}
		sample, found := query(name, t)
		if !found {
			s.sendf("%s\t?\t?", name)
			continue
		}
		s.sendf("%s\t%s\t%s", name, sample.Time, formatValue(sample.Value))
	}
	return s.flush()
}
