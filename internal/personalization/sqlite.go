package personalization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

const lineSeparator = "\n"

type profileRecord struct {
	ID          uint   `gorm:"primaryKey"`
	NameKey     string `gorm:"uniqueIndex;size:191"`
	DisplayName string
	Lines       string
	UpdatedAt   time.Time
}

func (profileRecord) TableName() string { return "profiles" }

// SQLite persists profiles in a local database file.
type SQLite struct {
	log *logger.Logger
	db  *gorm.DB
}

func NewSQLite(log *logger.Logger, path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open personalization db: %w", err)
	}
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, fmt.Errorf("migrate personalization db: %w", err)
	}
	return &SQLite{log: log.With("service", "PersonalizationStore"), db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, nameKey string) (*Profile, error) {
	var rec profileRecord
	err := s.db.WithContext(ctx).Where("name_key = ?", nameKey).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return recordToProfile(&rec), nil
}

func (s *SQLite) Append(ctx context.Context, nameKey, displayName string, lines []string) (*Profile, error) {
	var out *Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec profileRecord
		err := tx.Where("name_key = ?", nameKey).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = profileRecord{NameKey: nameKey}
		} else if err != nil {
			return err
		}
		if displayName != "" {
			rec.DisplayName = displayName
		}
		merged := mergeLines(splitLines(rec.Lines), lines)
		rec.Lines = strings.Join(merged, lineSeparator)
		rec.UpdatedAt = time.Now()
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = recordToProfile(&rec)
		return nil
	})
	return out, err
}

func (s *SQLite) ProfileLines(ctx context.Context, nameKey string) []string {
	p, err := s.Get(ctx, nameKey)
	if err != nil {
		s.log.Warn("profile lookup failed", "nameKey", nameKey, "error", err)
		return nil
	}
	if p == nil {
		return nil
	}
	return p.ContextLines
}

func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func splitLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(raw, lineSeparator) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func recordToProfile(rec *profileRecord) *Profile {
	return &Profile{
		NameKey:      rec.NameKey,
		DisplayName:  rec.DisplayName,
		ContextLines: splitLines(rec.Lines),
		UpdatedAt:    rec.UpdatedAt,
	}
}
