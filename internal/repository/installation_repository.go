package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

// InstallationRepo is the installation ledger.  The lifecycle manager is
// its only writer.
type InstallationRepo struct {
	db *sql.DB
}

// NewInstallationRepo constructs an InstallationRepo.
func NewInstallationRepo(db *sql.DB) *InstallationRepo {
	return &InstallationRepo{db: db}
}

// Create inserts a ledger row.  A UUID is generated when inst.ID is empty.
// If the shop already has a row for the section, ErrInstallationExists is
// returned and nothing is written.
func (r *InstallationRepo) Create(ctx context.Context, inst *model.Installation) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	const q = `INSERT INTO installations (id, shop_id, section_id, installed_version, theme_id)
	           VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, inst.ID, inst.ShopID, inst.SectionID, inst.InstalledVersion, inst.ThemeID); err != nil {
		if isDuplicateKey(err) {
			return ErrInstallationExists
		}
		return fmt.Errorf("insert installation: %w", err)
	}
	return nil
}

// FindByShopAndSection returns the ledger row for a (shop, section) pair or
// ErrInstallationNotFound.
func (r *InstallationRepo) FindByShopAndSection(ctx context.Context, shopID, sectionID uint64) (*model.Installation, error) {
	const q = `SELECT id, shop_id, section_id, installed_version, theme_id, created_at, updated_at
	           FROM installations WHERE shop_id = ? AND section_id = ? LIMIT 1`
	var inst model.Installation
	err := r.db.QueryRowContext(ctx, q, shopID, sectionID).Scan(
		&inst.ID, &inst.ShopID, &inst.SectionID, &inst.InstalledVersion, &inst.ThemeID, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstallationNotFound
		}
		return nil, err
	}
	return &inst, nil
}

// ListByShop returns every ledger row of a shop joined with its catalog
// section, in creation order.  The join is a LEFT JOIN so a row whose
// section vanished is still listed with empty section fields.
func (r *InstallationRepo) ListByShop(ctx context.Context, shopID uint64) ([]*model.InstallationDetail, error) {
	const q = `SELECT i.id, i.shop_id, i.section_id, i.installed_version, i.theme_id, i.created_at, i.updated_at,
	                  COALESCE(s.slug, ''), COALESCE(s.name, ''), COALESCE(s.version, '')
	           FROM installations i
	           LEFT JOIN sections s ON s.id = i.section_id
	           WHERE i.shop_id = ?
	           ORDER BY i.created_at, i.id`
	rows, err := r.db.QueryContext(ctx, q, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InstallationDetail
	for rows.Next() {
		d := new(model.InstallationDetail)
		if err := rows.Scan(&d.ID, &d.ShopID, &d.SectionID, &d.InstalledVersion, &d.ThemeID, &d.CreatedAt, &d.UpdatedAt,
			&d.SectionSlug, &d.SectionName, &d.SectionVersion); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVersion sets installed_version on a ledger row.
func (r *InstallationRepo) UpdateVersion(ctx context.Context, id, version string) error {
	const q = `UPDATE installations SET installed_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return r.execOne(ctx, q, version, id)
}

// Reassign points an existing ledger row at a new version and theme.  Used
// when an install finds a stale row whose asset had been removed.
func (r *InstallationRepo) Reassign(ctx context.Context, id, version, themeID string) error {
	const q = `UPDATE installations SET installed_version = ?, theme_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return r.execOne(ctx, q, version, themeID, id)
}

// Delete removes a ledger row.  Deleting a missing row returns
// ErrInstallationNotFound.
func (r *InstallationRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM installations WHERE id = ?`, id)
}

// execOne runs a single-row statement.  The connection counts matched rows
// (see database.DSN), so zero means the row does not exist.
func (r *InstallationRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInstallationNotFound
	}
	return nil
}
