package db

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campusconnect/internal/model"
)

// NewMySQL returns a connected GORM DB instance logging through log. Driver
// errors are translated so unique-key violations surface as gorm.ErrDuplicatedKey.
func NewMySQL(dsn string, debug bool, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log, level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Event{},
		&model.Listing{},
		&model.Favorite{},
		&model.Post{},
		&model.Like{},
		&model.Comment{},
		&model.Livestream{},
	}
}

// Migrate creates or updates the schema. With reset it drops all tables first.
func Migrate(db *gorm.DB, reset bool, log *zap.Logger) error {
	models := Models()
	if reset {
		log.Warn("db.reset", zap.Int("tables", len(models)))
		for i := len(models) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(models[i]); err != nil {
				log.Warn("db.reset.drop_failed", zap.Error(err))
			}
		}
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Info("db.migrated", zap.Int("tables", len(models)))
	return nil
}
