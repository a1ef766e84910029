package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

// ruleRecord is the storage row. The condition group, action list, and scope
// sets are stored as JSON documents; the columns the store queries on
// (event, enabled, priority) are lifted out.
type ruleRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:255;not null"`
	Description string

	Enabled  bool   `gorm:"not null;index"`
	Priority int    `gorm:"not null;index"`
	Event    string `gorm:"size:64;not null;index"`

	Countries  datatypes.JSON
	Currencies datatypes.JSON
	Conditions datatypes.JSON `gorm:"not null"`
	Actions    datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

func (ruleRecord) TableName() string { return "rules" }

// GormStore implements Store over SQLite or Postgres.
type GormStore struct {
	db *gorm.DB
}

// Open connects based on the DSN, migrates the schema, and returns the store.
// "postgres://…" and key=value DSNs select Postgres; anything else is treated
// as a SQLite path (":memory:" works for tests).
func Open(dsn string) (*GormStore, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("store: empty dsn")
	}
	var dialector gorm.Dialector
	if isPostgresDSN(trimmed) {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", trimmed, err)
	}
	if err := db.AutoMigrate(&ruleRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=")
}

func (s *GormStore) List(ctx context.Context) ([]rule.Rule, error) {
	var recs []ruleRecord
	err := s.db.WithContext(ctx).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toDomainAll(recs)
}

func (s *GormStore) ListByEvent(ctx context.Context, ev event.Type) ([]rule.Rule, error) {
	var recs []ruleRecord
	err := s.db.WithContext(ctx).
		Where("event = ? AND enabled = ?", string(ev), true).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toDomainAll(recs)
}

func (s *GormStore) Get(ctx context.Context, id string) (rule.Rule, error) {
	var rec ruleRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rule.Rule{}, ErrNotFound
	}
	if err != nil {
		return rule.Rule{}, err
	}
	return toDomain(rec)
}

func (s *GormStore) Create(ctx context.Context, r *rule.Rule) error {
	r.Normalize()
	if err := rule.Validate(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	rec, err := toRecord(*r)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	r.CreatedAt = rec.CreatedAt
	r.UpdatedAt = rec.UpdatedAt
	return nil
}

// Update loads, patches, re-validates, and saves inside one transaction so a
// concurrent patch cannot interleave between read and write.
func (s *GormStore) Update(ctx context.Context, id string, p rule.Patch) (rule.Rule, error) {
	var out rule.Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec ruleRecord
		err := tx.First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		r, err := toDomain(rec)
		if err != nil {
			return err
		}
		p.Apply(&r)
		if err := rule.Validate(&r); err != nil {
			return err
		}
		updated, err := toRecord(r)
		if err != nil {
			return err
		}
		updated.CreatedAt = rec.CreatedAt
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		out = r
		out.CreatedAt = updated.CreatedAt
		out.UpdatedAt = updated.UpdatedAt
		return nil
	})
	if err != nil {
		return rule.Rule{}, err
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&ruleRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toRecord(r rule.Rule) (ruleRecord, error) {
	countries, err := json.Marshal(r.Countries)
	if err != nil {
		return ruleRecord{}, err
	}
	currencies, err := json.Marshal(r.OrderCurrencyIn)
	if err != nil {
		return ruleRecord{}, err
	}
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return ruleRecord{}, err
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return ruleRecord{}, err
	}
	return ruleRecord{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		Priority:    r.Priority,
		Event:       string(r.Event),
		Countries:   countries,
		Currencies:  currencies,
		Conditions:  conditions,
		Actions:     actions,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func toDomain(rec ruleRecord) (rule.Rule, error) {
	r := rule.Rule{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Enabled:     rec.Enabled,
		Priority:    rec.Priority,
		Event:       event.Type(rec.Event),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if len(rec.Countries) > 0 {
		if err := json.Unmarshal(rec.Countries, &r.Countries); err != nil {
			return rule.Rule{}, fmt.Errorf("rule %s: countries: %w", rec.ID, err)
		}
	}
	if len(rec.Currencies) > 0 {
		if err := json.Unmarshal(rec.Currencies, &r.OrderCurrencyIn); err != nil {
			return rule.Rule{}, fmt.Errorf("rule %s: currencies: %w", rec.ID, err)
		}
	}
	if err := json.Unmarshal(rec.Conditions, &r.Conditions); err != nil {
		return rule.Rule{}, fmt.Errorf("rule %s: conditions: %w", rec.ID, err)
	}
	if err := json.Unmarshal(rec.Actions, &r.Actions); err != nil {
		return rule.Rule{}, fmt.Errorf("rule %s: actions: %w", rec.ID, err)
	}
	return r, nil
}

func toDomainAll(recs []ruleRecord) ([]rule.Rule, error) {
	out := make([]rule.Rule, 0, len(recs))
	for _, rec := range recs {
		r, err := toDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
