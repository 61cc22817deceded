package database

import (
	"errors"
	"fmt"

	"github.com/mrolimdev/qsb-teste/internal/models"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres connection and migrates the schema.
// Values come from viper, which resolves environment variables first
// and the config.yaml keys as a local-development fallback.
func Connect() (*gorm.DB, error) {
	host := viper.GetString("DB_HOST")
	port := viper.GetString("DB_PORT")
	user := viper.GetString("DB_USER")
	password := viper.GetString("DB_PASSWORD")
	dbname := viper.GetString("DB_NAME")

	if host == "" {
		host = viper.GetString("database.host")
		port = viper.GetString("database.port")
		user = viper.GetString("database.user")
		password = viper.GetString("database.password")
		dbname = viper.GetString("database.dbname")
	}

	if host == "" || port == "" || user == "" || dbname == "" {
		return nil, errors.New("database configuration is incomplete")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=America/Sao_Paulo",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Profile{}, &models.Character{}, &models.ConfigEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
