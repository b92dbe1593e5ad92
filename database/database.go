package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"grocery-order-service/config"

	_ "github.com/go-sql-driver/mysql"
)

var DB *sql.DB

func InitDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	DB = db
	if err := ensureSchema(); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// ensureSchema creates the line-item ledger table. order_id is indexed but
// deliberately not unique: every line item of one checkout shares it.
func ensureSchema() error {
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id VARCHAR(32) NOT NULL,
			user_id INT NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			product_image VARCHAR(512) NOT NULL DEFAULT '',
			quantity INT NOT NULL,
			price_per_unit DOUBLE NOT NULL,
			item_total DOUBLE NOT NULL,
			payment_method VARCHAR(16) NOT NULL,
			payment_status VARCHAR(16) NOT NULL DEFAULT 'Pending',
			order_status VARCHAR(16) NOT NULL DEFAULT 'Processing',
			delivery_address_id VARCHAR(64) NOT NULL,
			payment_id VARCHAR(64) NOT NULL DEFAULT '',
			payment_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			INDEX idx_order (order_id),
			INDEX idx_user_order (user_id, order_id),
			INDEX idx_user_created (user_id, created_at)
		)
	`)
	return err
}

func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}
