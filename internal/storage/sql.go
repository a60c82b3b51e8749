package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// record is the row layout shared by every SQLStore. Records of different
// kinds live in the same table and are told apart by Kind.
type record struct {
	Kind      string `gorm:"primaryKey;size:64"`
	ID        string `gorm:"primaryKey;size:128"`
	Version   uint   `gorm:"not null"`
	Spec      string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (record) TableName() string {
	return "arena_records"
}

// OpenPostgres connects to the database described by dsn and migrates the
// record table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrating records: %w", err)
	}

	return db, nil
}

// SQLStore is a Storer backed by a gorm database. All records of its kind are
// cached at construction for GetAll. Save writes through and Get queries the
// row.
type SQLStore[T ValidatingSpec] struct {
	db      *gorm.DB
	kind    string
	records map[Identifier]T

	mu sync.RWMutex
}

func NewSQLStore[T ValidatingSpec](db *gorm.DB, kind string) (*SQLStore[T], error) {
	s := &SQLStore[T]{
		db:      db,
		kind:    kind,
		records: map[Identifier]T{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStore[T]) load() error {
	var rows []record
	if err := s.db.Where("kind = ?", s.kind).Find(&rows).Error; err != nil {
		return fmt.Errorf("querying %s records: %w", s.kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		asset, err := s.decode(row)
		if err != nil {
			return err
		}
		s.records[asset.Id()] = asset.Spec
	}

	return nil
}

func (s *SQLStore[T]) decode(row record) (*Asset[T], error) {
	asset := &Asset[T]{
		Version:    row.Version,
		Identifier: Identifier(row.ID),
	}
	if err := json.Unmarshal([]byte(row.Spec), &asset.Spec); err != nil {
		return nil, fmt.Errorf("unmarshalling %s %s: %w", s.kind, row.ID, err)
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s %s: %w", s.kind, row.ID, err)
	}
	return asset, nil
}

func (s *SQLStore[T]) Save(id string, o T) error {
	asset := &Asset[T]{
		Version:    1,
		Identifier: Identifier(id),
		Spec:       o,
	}
	if err := asset.Validate(); err != nil {
		return fmt.Errorf("validating %s: %w", id, err)
	}

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	row := record{
		Kind:    s.kind,
		ID:      id,
		Version: asset.Version,
		Spec:    string(data),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "spec", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", s.kind, id, err)
	}

	s.records[asset.Id()] = o
	return nil
}

func (s *SQLStore[T]) Get(id string) (T, error) {
	var zero T

	var row record
	err := s.db.Where("kind = ? AND id = ?", s.kind, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return zero, fmt.Errorf("querying %s %s: %w", s.kind, id, err)
	}

	asset, err := s.decode(row)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	s.records[asset.Id()] = asset.Spec
	s.mu.Unlock()
	return asset.Spec, nil
}

func (s *SQLStore[T]) GetAll() map[Identifier]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := make(map[Identifier]T, len(s.records))
	for id, v := range s.records {
		vals[id] = v
	}
	return vals
}
