package config

import (
	"database/sql"
	"time"

	"Scorekeep/models/postgres"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectGORM returns a GORM DB instance connected to PostgreSQL
func ConnectGORM(c PostgresConfig) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", c.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}

	level := logger.Warn
	if c.Verbose {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.New(zap.NewStdLog(zap.L()), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}

	// NOTE: postgres driver v1.4.0, see https://github.com/pilinux/gorest/issues/167
	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "opening gorm")
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}

	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	zap.S().Infof("Connected to PostgreSQL at %s:%s/%s", c.Host, c.Port, c.Database)
	return db, nil
}

// MigrateDatabase migrates the GORM models to the PostgreSQL database
func MigrateDatabase(db *gorm.DB) error {
	err := db.AutoMigrate(
		postgres.User{},
		postgres.GameSession{},
		postgres.GameInvitation{},
		postgres.ActiveGame{},
		postgres.CompletedGame{})
	if err != nil {
		return errors.Wrap(err, "auto migration failed")
	}
	zap.S().Info("PostgreSQL database migrated successfully")
	return nil
}
