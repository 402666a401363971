package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"ledger-core/pkg/database"
)

const postgresImage = "postgres:16-alpine"

// GormStoreSuite 在真实 PostgreSQL 上跑同一套行为测试，没有 Docker 时跳过
type GormStoreSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	container *tcpostgres.PostgresContainer
	dsn       string
	db        *gorm.DB
}

func TestGormStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration suite in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(GormStoreSuite))
}

func (s *GormStoreSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	container, err := tcpostgres.Run(s.ctx,
		postgresImage,
		tcpostgres.WithDatabase("ledger_db"),
		tcpostgres.WithUsername("ledger_user"),
		tcpostgres.WithPassword("ledger_password"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.dsn = dsn

	db, err := database.ConnectPostgres(dsn, false)
	s.Require().NoError(err)
	s.db = db
}

func (s *GormStoreSuite) TearDownSuite() {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *GormStoreSuite) TestContract() {
	runStoreContract(s.T(), func(t *testing.T) Store {
		// 每个子测试从空库开始
		if err := migrateDown(s.dsn); err != nil {
			t.Fatalf("migrate down: %v", err)
		}
		if err := migrateUp(s.dsn); err != nil {
			t.Fatalf("migrate up: %v", err)
		}
		return NewGormStore(s.db)
	})
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working dir: %w", err)
	}
	for {
		if _, statErr := os.Stat(filepath.Join(dir, "go.mod")); statErr == nil {
			return dir, nil
		}
		next := filepath.Dir(dir)
		if next == dir {
			return "", fmt.Errorf("go.mod not found from %s", dir)
		}
		dir = next
	}
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	root, err := moduleRoot()
	if err != nil {
		return nil, err
	}
	return migrate.New("file://"+filepath.Join(root, "migrations"), dsn)
}

func migrateUp(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func migrateDown(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
