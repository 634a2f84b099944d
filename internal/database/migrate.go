package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL statements applied by Migrate, in order.  Every
// statement is idempotent so Migrate can run on each deploy.
//
// installations carries a composite unique key on (shop_id, section_id):
// the ledger must never hold two rows for the same section in one shop.
// The section foreign key is RESTRICT so a catalog row cannot be removed
// while a shop still has it installed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shops (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		domain VARCHAR(255) NOT NULL,
		access_token_sealed TEXT NOT NULL,
		scopes VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_shops_domain (domain)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sections (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		slug VARCHAR(191) NOT NULL,
		name VARCHAR(255) NOT NULL,
		liquid_code MEDIUMTEXT NOT NULL,
		version VARCHAR(64) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sections_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS installations (
		id CHAR(36) NOT NULL PRIMARY KEY,
		shop_id BIGINT UNSIGNED NOT NULL,
		section_id BIGINT UNSIGNED NOT NULL,
		installed_version VARCHAR(64) NOT NULL,
		theme_id VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_installations_shop_section (shop_id, section_id),
		CONSTRAINT fk_installations_shop FOREIGN KEY (shop_id) REFERENCES shops (id) ON DELETE CASCADE,
		CONSTRAINT fk_installations_section FOREIGN KEY (section_id) REFERENCES sections (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
