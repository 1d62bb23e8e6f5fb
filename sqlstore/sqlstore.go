// Package sqlstore implements the point collaborator interface on a SQLite
// archive, giving the ASCII interface access to history that outlives the
// process. Values are archived in their wire (text) form.
package sqlstore

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	monica "github.com/NicholasRalph243/open-monica"
	"github.com/NicholasRalph243/open-monica/bat"
)

// PointRecord is the archived description of one monitor point.
type PointRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"uniqueIndex;not null"`
	Units        string
	Description  string
	PeriodMicros int64
}

// SampleRecord is one archived observation.
type SampleRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	PointName string `gorm:"index:idx_point_bat,priority:1;not null"`
	BAT       int64  `gorm:"column:bat;index:idx_point_bat,priority:2;not null"`
	Value     string
	Alarmed   bool
}

// Store is a SQLite-backed monica.PointStore.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the archive at the given SQLite DSN.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&PointRecord{}, &SampleRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// AddPoint registers a point in the archive, updating its description if it
// already exists.
func (s *Store) AddPoint(d monica.PointDetail) error {
	rec := PointRecord{
		Name:         d.Name,
		Units:        d.Units,
		Description:  d.Description,
		PeriodMicros: d.Period.Microseconds(),
	}
	err := s.db.Where(PointRecord{Name: d.Name}).
		Assign(rec).
		FirstOrCreate(&PointRecord{}).Error
	if err != nil {
		return fmt.Errorf("register point %s: %w", d.Name, err)
	}
	return nil
}

// Ingest archives one sample.
func (s *Store) Ingest(name string, sm monica.Sample) error {
	if !s.Exists(name) {
		return monica.ErrPointNotFound
	}
	rec := SampleRecord{
		PointName: name,
		BAT:       int64(sm.Time),
		Value:     fmt.Sprint(sm.Value),
		Alarmed:   sm.Alarm,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("archive sample for %s: %w", name, err)
	}
	return nil
}

// PointNames implements monica.PointStore.
func (s *Store) PointNames() []string {
	var names []string
	s.db.Model(&PointRecord{}).Order("name").Pluck("name", &names)
	return names
}

// Exists implements monica.PointStore.
func (s *Store) Exists(name string) bool {
	var count int64
	s.db.Model(&PointRecord{}).Where("name = ?", name).Count(&count)
	return count > 0
}

// Details implements monica.PointStore.
func (s *Store) Details(name string) (monica.PointDetail, bool) {
	var rec PointRecord
	err := s.db.Where("name = ?", name).First(&rec).Error
	if err != nil {
		return monica.PointDetail{}, false
	}
	return monica.PointDetail{
		Name:        rec.Name,
		Units:       rec.Units,
		Description: rec.Description,
		Period:      time.Duration(rec.PeriodMicros) * time.Microsecond,
	}, true
}

// Latest implements monica.PointStore.
func (s *Store) Latest(name string) (monica.Sample, bool) {
	var rec SampleRecord
	err := s.db.Where("point_name = ?", name).Order("bat desc").First(&rec).Error
	if err != nil {
		return monica.Sample{}, false
	}
	return rec.sample(), true
}

// Range implements monica.PointStore. Both interval endpoints are inclusive.
func (s *Store) Range(name string, start, end bat.Time) ([]monica.Sample, error) {
	var recs []SampleRecord
	err := s.db.Where("point_name = ? AND bat >= ? AND bat <= ?", name, int64(start), int64(end)).
		Order("bat asc").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("range query for %s: %w", name, err)
	}
	out := make([]monica.Sample, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.sample())
	}
	return out, nil
}

// Preceding implements monica.PointStore.
func (s *Store) Preceding(name string, t bat.Time) (monica.Sample, bool) {
	var rec SampleRecord
	err := s.db.Where("point_name = ? AND bat <= ?", name, int64(t)).
		Order("bat desc").First(&rec).Error
	if err != nil {
		return monica.Sample{}, false
	}
	return rec.sample(), true
}

// Following implements monica.PointStore.
func (s *Store) Following(name string, t bat.Time) (monica.Sample, bool) {
	var rec SampleRecord
	err := s.db.Where("point_name = ? AND bat >= ?", name, int64(t)).
		Order("bat asc").First(&rec).Error
	if err != nil {
		return monica.Sample{}, false
	}
	return rec.sample(), true
}

// Set implements monica.PointStore.
func (s *Store) Set(name string, sm monica.Sample) error {
	return s.Ingest(name, sm)
}

// PruneBefore deletes archived samples older than the cutoff and returns
// how many were removed.
func (s *Store) PruneBefore(cutoff bat.Time) (int64, error) {
	res := s.db.Where("bat < ?", int64(cutoff)).Delete(&SampleRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune archive: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r SampleRecord) sample() monica.Sample {
	return monica.Sample{
		Time:  bat.Time(r.BAT),
		Value: r.Value,
		Alarm: r.Alarmed,
	}
}
