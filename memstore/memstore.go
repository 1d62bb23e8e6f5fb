// Package memstore provides in-memory implementations of the point and
// alarm collaborator interfaces: a bounded per-point sample buffer and a
// simple alarm registry. It backs servers that run without an archive and
// doubles as the test fixture for the protocol engine.
package memstore

import (
	"sort"
	"sync"

	monica "github.com/NicholasRalph243/open-monica"
	"github.com/NicholasRalph243/open-monica/bat"
)

// Samples retained per point before the oldest are discarded.
const defaultCapacity = 4096

type point struct {
	detail  monica.PointDetail
	samples []monica.Sample
}

// Store is an in-memory point buffer and alarm registry. Safe for concurrent
// use by many sessions.
type Store struct {
	mu     sync.RWMutex
	points map[string]*point
	alarms map[string]*monica.Alarm
}

// New creates an empty store.
func New() *Store {
	return &Store{
		points: make(map[string]*point),
		alarms: make(map[string]*monica.Alarm),
	}
}

// AddPoint registers a monitor point. Re-adding a name replaces its detail
// and keeps its samples.
func (s *Store) AddPoint(d monica.PointDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.points[d.Name]; ok {
		p.detail = d
		return
	}
	s.points[d.Name] = &point{detail: d}
}

// Ingest appends a sample to a point's buffer. Samples arriving out of order
// are inserted at their timestamp position.
func (s *Store) Ingest(name string, sm monica.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.points[name]
	if !ok {
		return monica.ErrPointNotFound
	}
	i := sort.Search(len(p.samples), func(i int) bool {
		return p.samples[i].Time.After(sm.Time)
	})
	p.samples = append(p.samples, monica.Sample{})
	copy(p.samples[i+1:], p.samples[i:])
	p.samples[i] = sm
	if len(p.samples) > defaultCapacity {
		p.samples = p.samples[len(p.samples)-defaultCapacity:]
	}
	return nil
}

// PointNames implements monica.PointStore.
func (s *Store) PointNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.points))
	for name := range s.points {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exists implements monica.PointStore.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.points[name]
	return ok
}

// Details implements monica.PointStore.
func (s *Store) Details(name string) (monica.PointDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[name]
	if !ok {
		return monica.PointDetail{}, false
	}
	return p.detail, true
}

// Latest implements monica.PointStore.
func (s *Store) Latest(name string) (monica.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[name]
	if !ok || len(p.samples) == 0 {
		return monica.Sample{}, false
	}
	return p.samples[len(p.samples)-1], true
}

// Range implements monica.PointStore. Both interval endpoints are inclusive.
func (s *Store) Range(name string, start, end bat.Time) ([]monica.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[name]
	if !ok {
		return nil, monica.ErrPointNotFound
	}
	var out []monica.Sample
	for _, sm := range p.samples {
		if !sm.Time.Before(start) && !sm.Time.After(end) {
			out = append(out, sm)
		}
	}
	return out, nil
}

// Preceding implements monica.PointStore.
func (s *Store) Preceding(name string, t bat.Time) (monica.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[name]
	if !ok {
		return monica.Sample{}, false
	}
	for i := len(p.samples) - 1; i >= 0; i-- {
		if !p.samples[i].Time.After(t) {
			return p.samples[i], true
		}
	}
	return monica.Sample{}, false
}

// Following implements monica.PointStore.
func (s *Store) Following(name string, t bat.Time) (monica.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[name]
	if !ok {
		return monica.Sample{}, false
	}
	for _, sm := range p.samples {
		if !sm.Time.Before(t) {
			return sm, true
		}
	}
	return monica.Sample{}, false
}

// Set implements monica.PointStore.
func (s *Store) Set(name string, sm monica.Sample) error {
	return s.Ingest(name, sm)
}

// AddAlarm registers an alarm point.
func (s *Store) AddAlarm(a monica.Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := a
	s.alarms[a.Point] = &stored
}

// Raise sets or clears the alarmed flag of an alarm point.
func (s *Store) Raise(pointName string, alarmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[pointName]
	if !ok {
		return monica.ErrPointNotFound
	}
	a.Alarmed = alarmed
	return nil
}

// Current implements monica.AlarmStore: alarms that are alarmed,
// acknowledged or shelved.
func (s *Store) Current() []monica.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []monica.Alarm
	for _, name := range s.alarmNames() {
		a := s.alarms[name]
		if a.Alarmed || a.Acknowledged || a.Shelved {
			out = append(out, *a)
		}
	}
	return out
}

// All implements monica.AlarmStore.
func (s *Store) All() []monica.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]monica.Alarm, 0, len(s.alarms))
	for _, name := range s.alarmNames() {
		out = append(out, *s.alarms[name])
	}
	return out
}

// SetAcknowledged implements monica.AlarmStore.
func (s *Store) SetAcknowledged(pointName string, v bool, by string, t bat.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[pointName]
	if !ok {
		return monica.ErrPointNotFound
	}
	a.Acknowledged = v
	a.AckedBy = by
	a.AckedAt = t
	return nil
}

// SetShelved implements monica.AlarmStore.
func (s *Store) SetShelved(pointName string, v bool, by string, t bat.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[pointName]
	if !ok {
		return monica.ErrPointNotFound
	}
	a.Shelved = v
	a.ShelvedBy = by
	a.ShelvedAt = t
	return nil
}

// alarmNames returns alarm point names sorted, callers hold the lock.
func (s *Store) alarmNames() []string {
	names := make([]string, 0, len(s.alarms))
	for name := range s.alarms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
