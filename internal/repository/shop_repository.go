package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

// ShopRepo stores registered shops and their sealed offline tokens.
type ShopRepo struct{ DB *sql.DB }

func NewShopRepo(db *sql.DB) *ShopRepo { return &ShopRepo{DB: db} }

// GetByDomain returns the shop registered for a myshopify domain.
func (r *ShopRepo) GetByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	var s model.Shop
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, domain, access_token_sealed, scopes, created_at, updated_at FROM shops WHERE domain=? LIMIT 1",
		domain).Scan(&s.ID, &s.Domain, &s.AccessTokenSealed, &s.Scopes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Upsert registers a shop or rotates the token of an existing one.  The
// shop's ID is populated on return.
func (r *ShopRepo) Upsert(ctx context.Context, s *model.Shop) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO shops (domain, access_token_sealed, scopes) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id), access_token_sealed=VALUES(access_token_sealed),
		 scopes=VALUES(scopes), updated_at=CURRENT_TIMESTAMP`,
		s.Domain, s.AccessTokenSealed, s.Scopes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}
