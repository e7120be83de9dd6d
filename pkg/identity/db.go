// Package identity bridges the identity service's user database to the
// Generation Store files the edge fleet consumes at boot.
package identity

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User mirrors the identity service's account row. Plan columns are
// pointers because unlimited plans store NULL.
type User struct {
	Username              string `gorm:"primaryKey;size:64"`
	UUID                  string `gorm:"uniqueIndex;size:36"`
	CreatedAt             time.Time
	PlanStart             *time.Time
	PlanDurationSeconds   *int64
	PlanTraffic           *int64
	PlanTrafficUsage      int64
	PlanExtraTraffic      int64
	PlanExtraTrafficUsage int64
}

func (User) TableName() string { return "users" }

// HasActivePlan reports whether the user still has time and traffic.
// Users without an active plan are excluded from the exported snapshot.
func (u User) HasActivePlan(now time.Time) bool {
	hasTime := u.PlanStart == nil || u.PlanDurationSeconds == nil ||
		now.Before(u.PlanStart.Add(time.Duration(*u.PlanDurationSeconds)*time.Second))
	hasTraffic := u.PlanTraffic == nil ||
		u.PlanTrafficUsage < *u.PlanTraffic ||
		u.PlanExtraTrafficUsage < u.PlanExtraTraffic
	return hasTime && hasTraffic
}

// Open connects to MySQL and runs migrations.
// Env: MYSQL_DSN or MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASS, MYSQL_DB.
func Open() (*gorm.DB, error) {
	_ = loadDotEnv()
	host := getenv("MYSQL_HOST", "127.0.0.1")
	port := getenv("MYSQL_PORT", "3306")
	user := getenv("MYSQL_USER", "root")
	pass := getenv("MYSQL_PASS", "")
	dbname := getenv("MYSQL_DB", "identity")

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", user, pass, host, port, dbname)
	}

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	// the identity service owns the database; a missing one is fatal here
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open identity database: %w", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}
	return db, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
