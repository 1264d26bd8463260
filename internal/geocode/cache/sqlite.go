// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wneessen/easyfatt-export/internal/geocode"
)

type locationRecord struct {
	Fingerprint string `gorm:"primaryKey"`
	Address     string
	Latitude    float64
	Longitude   float64
	Altitude    float64
	PostalCodes string
	UpdatedAt   time.Time
}

func (locationRecord) TableName() string {
	return "geocode_locations"
}

func (r locationRecord) location() geocode.Location {
	location := geocode.Location{
		Address:   r.Address,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Altitude:  r.Altitude,
	}
	if r.PostalCodes != "" {
		location.PostalCodes = strings.Split(r.PostalCodes, ",")
	}
	return location
}

// SQLite stores locations in a single table keyed by fingerprint.
type SQLite struct {
	db *gorm.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite cache requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create geocoding cache directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite geocoding cache: %w", err)
	}
	if err = db.WithContext(ctx).AutoMigrate(&locationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite geocoding cache: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (geocode.Location, bool, error) {
	var record locationRecord
	err := s.db.WithContext(ctx).Where("fingerprint = ?", key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return geocode.Location{}, false, nil
	}
	if err != nil {
		return geocode.Location{}, false, fmt.Errorf("failed to query sqlite geocoding cache: %w", err)
	}
	return record.location(), true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, location geocode.Location) error {
	record := locationRecord{
		Fingerprint: key,
		Address:     location.Address,
		Latitude:    location.Latitude,
		Longitude:   location.Longitude,
		Altitude:    location.Altitude,
		PostalCodes: strings.Join(location.PostalCodes, ","),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store location in sqlite geocoding cache: %w", err)
	}
	return nil
}

// Len returns the number of cached locations.
func (s *SQLite) Len(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&locationRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sqlite geocoding cache: %w", err)
	}
	return count, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
