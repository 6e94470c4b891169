package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	Candidate() Candidate
	Ping(ctx context.Context) error
	InitialMigration(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db        *gorm.DB
	candidate Candidate
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		candidate: NewCandidateStore(db),
		db:        db,
	}
}

func (s *DataStore) Candidate() Candidate {
	return s.candidate
}

// Ping checks that the database is reachable.
func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.candidate.InitialMigration(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
