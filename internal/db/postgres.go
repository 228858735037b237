package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
	"github.com/preceptorly/feedback-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "preceptor_feedback", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Preceptor{},
		&types.PreceptorToken{},
		&types.FeedbackSession{},
		&types.StandardRecord{},
		&types.Turn{},
		&types.ReportRecord{},
		&types.AICallLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	for _, stmt := range []string{
		`ALTER TABLE "preceptor_token"
		 ADD CONSTRAINT "fk_preceptor_token_preceptor_id"
		 FOREIGN KEY ("preceptor_id") REFERENCES "preceptor"("id")
		 ON DELETE CASCADE`,
		`ALTER TABLE "standard_record"
		 ADD CONSTRAINT "fk_standard_record_session_id"
		 FOREIGN KEY ("session_id") REFERENCES "feedback_session"("id")
		 ON DELETE CASCADE`,
		`ALTER TABLE "turn"
		 ADD CONSTRAINT "fk_turn_session_id"
		 FOREIGN KEY ("session_id") REFERENCES "feedback_session"("id")
		 ON DELETE CASCADE`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			// Re-running migrations against an existing schema hits duplicate
			// constraint errors; those are fine.
			s.log.Debug("Foreign key statement skipped", "error", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
