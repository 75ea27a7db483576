package postgres

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
}

func NewDatabase(config DatabaseConfig) (*gorm.DB, error) {
	return Open(config.DSN())
}

// Open connects with a DSN or URL, as handed out by test containers.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	// PostGIS for report/user locations, pgvector for face embeddings
	for _, ext := range []string{"postgis", "vector"} {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS " + ext).Error; err != nil {
			return fmt.Errorf("failed to enable %s extension: %v", ext, err)
		}
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserContact{},
		&models.Report{},
		&models.ReportImage{},
		&models.ReportCluster{},
	); err != nil {
		return fmt.Errorf("failed to run auto migrations: %v", err)
	}

	if err := runSpatialMigrations(db); err != nil {
		return fmt.Errorf("failed to run spatial migrations: %v", err)
	}

	return nil
}

// runSpatialMigrations adds what AutoMigrate cannot express: GiST/HNSW indexes and
// table constraints.
func runSpatialMigrations(db *gorm.DB) error {
	migrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_reports_location ON reports USING gist (location)`,
		`CREATE INDEX IF NOT EXISTS idx_users_current_location ON users USING gist (current_location)`,
		`CREATE INDEX IF NOT EXISTS idx_report_images_encoding ON report_images USING hnsw (encoding vector_cosine_ops)`,

		// An embedding exists exactly when a face was detected
		`DO $$ BEGIN
			ALTER TABLE report_images ADD CONSTRAINT chk_report_images_face
				CHECK (has_face = (encoding IS NOT NULL));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

		`DO $$ BEGIN
			ALTER TABLE user_contacts ADD CONSTRAINT chk_user_contacts_not_self
				CHECK (user_id <> contact_id);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}

	for _, sql := range migrations {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration failed: %.50s, error: %v", sql, err)
		}
	}

	return nil
}

// notFound maps gorm's missing-row error onto the repository one.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
