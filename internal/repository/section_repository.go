package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

// SectionRepo is the section catalog.  The installer only reads from it;
// Upsert exists for the operator CLI that syncs authored sections.
type SectionRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewSectionRepo constructs a SectionRepo with the provided DB handle.
func NewSectionRepo(db *sql.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

const sectionColumns = "id, slug, name, liquid_code, version, created_at, updated_at"

func scanSection(row interface{ Scan(...any) error }) (*model.Section, error) {
	var s model.Section
	if err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.LiquidCode, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetBySlug fetches a section by its unique slug.  It returns
// ErrSectionNotFound if no row matches.
func (r *SectionRepo) GetBySlug(ctx context.Context, slug string) (*model.Section, error) {
	q := "SELECT " + sectionColumns + " FROM sections WHERE slug = ?"
	s, err := scanSection(r.db.QueryRowContext(ctx, q, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListAll returns every catalog section ordered by name.
func (r *SectionRepo) ListAll(ctx context.Context) ([]*model.Section, error) {
	q := "SELECT " + sectionColumns + " FROM sections ORDER BY name, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts a section or, when the slug already exists, replaces its
// name, code and version.  The section's ID is populated on return.
func (r *SectionRepo) Upsert(ctx context.Context, s *model.Section) error {
	const q = `INSERT INTO sections (slug, name, liquid_code, version) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name),
	           liquid_code = VALUES(liquid_code), version = VALUES(version), updated_at = CURRENT_TIMESTAMP`
	res, err := r.db.ExecContext(ctx, q, s.Slug, s.Name, s.LiquidCode, s.Version)
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
