package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestSectionRepoGetBySlug(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSectionRepo(db)

	mock.ExpectQuery(`SELECT .* FROM sections WHERE slug = \?`).
		WithArgs("hero-banner").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "liquid_code", "version", "created_at", "updated_at"}).
			AddRow(7, "hero-banner", "Hero Banner", "<div></div>", "3", now, now))

	s, err := repo.GetBySlug(context.Background(), "hero-banner")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.ID)
	assert.Equal(t, "3", s.Version)
	assert.Equal(t, "sections/hero-banner.liquid", s.AssetKey())
}

func TestSectionRepoGetBySlugNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSectionRepo(db)

	mock.ExpectQuery(`SELECT .* FROM sections WHERE slug = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestSectionRepoListAll(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSectionRepo(db)

	mock.ExpectQuery(`SELECT .* FROM sections ORDER BY name, id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "liquid_code", "version", "created_at", "updated_at"}).
			AddRow(1, "faq", "FAQ", "a", "1", now, now).
			AddRow(2, "hero", "Hero", "b", "2", now, now))

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hero", list[1].Slug)
}

func TestSectionRepoUpsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSectionRepo(db)

	mock.ExpectExec(`INSERT INTO sections .* ON DUPLICATE KEY UPDATE`).
		WithArgs("faq", "FAQ", "{% schema %}{% endschema %}", "4").
		WillReturnResult(sqlmock.NewResult(12, 2))

	s := &model.Section{Slug: "faq", Name: "FAQ", LiquidCode: "{% schema %}{% endschema %}", Version: "4"}
	require.NoError(t, repo.Upsert(context.Background(), s))
	assert.Equal(t, uint64(12), s.ID)
}

func TestInstallationRepoCreateGeneratesID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	mock.ExpectExec(`INSERT INTO installations`).
		WithArgs(sqlmock.AnyArg(), uint64(1), uint64(7), "3", "1001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inst := &model.Installation{ShopID: 1, SectionID: 7, InstalledVersion: "3", ThemeID: "1001"}
	require.NoError(t, repo.Create(context.Background(), inst))
	assert.Len(t, inst.ID, 36)
}

func TestInstallationRepoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	mock.ExpectExec(`INSERT INTO installations`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-7' for key 'uq_installations_shop_section'"})

	err := repo.Create(context.Background(), &model.Installation{ID: "fixed", ShopID: 1, SectionID: 7})
	assert.ErrorIs(t, err, ErrInstallationExists)
}

func TestInstallationRepoCreateOtherError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(`INSERT INTO installations`).WillReturnError(boom)

	err := repo.Create(context.Background(), &model.Installation{ID: "fixed"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInstallationExists)
}

func TestInstallationRepoFindByShopAndSection(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	mock.ExpectQuery(`FROM installations WHERE shop_id = \? AND section_id = \?`).
		WithArgs(uint64(1), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shop_id", "section_id", "installed_version", "theme_id", "created_at", "updated_at"}).
			AddRow("abc", 1, 7, "2", "1001", now, now))
	mock.ExpectQuery(`FROM installations WHERE shop_id = \? AND section_id = \?`).
		WithArgs(uint64(1), uint64(8)).
		WillReturnError(sql.ErrNoRows)

	inst, err := repo.FindByShopAndSection(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "abc", inst.ID)
	assert.Equal(t, "2", inst.InstalledVersion)

	_, err = repo.FindByShopAndSection(context.Background(), 1, 8)
	assert.ErrorIs(t, err, ErrInstallationNotFound)
}

func TestInstallationRepoListByShop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	mock.ExpectQuery(`LEFT JOIN sections s ON s.id = i.section_id`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shop_id", "section_id", "installed_version", "theme_id", "created_at", "updated_at", "slug", "name", "version"}).
			AddRow("a", 1, 7, "1", "1001", now, now, "hero", "Hero", "2").
			AddRow("b", 1, 9, "5", "1001", now, now, "", "", ""))

	list, err := repo.ListByShop(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hero", list[0].SectionSlug)
	assert.Equal(t, "2", list[0].SectionVersion)
	assert.Empty(t, list[1].SectionSlug)
}

func TestInstallationRepoUpdateVersionAndDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	mock.ExpectExec(`UPDATE installations SET installed_version = \?`).
		WithArgs("3", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE installations SET installed_version = \?, theme_id = \?`).
		WithArgs("3", "2002", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM installations WHERE id = \?`).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM installations WHERE id = \?`).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.UpdateVersion(ctx, "abc", "3"))
	require.NoError(t, repo.Reassign(ctx, "abc", "3", "2002"))
	require.NoError(t, repo.Delete(ctx, "abc"))
	assert.ErrorIs(t, repo.Delete(ctx, "abc"), ErrInstallationNotFound)
}

func TestInstallationRepoUpdateVersionUnchangedRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInstallationRepo(db)

	// Same version again: the row matches but nothing changes.
	mock.ExpectExec(`UPDATE installations SET installed_version = \?`).
		WithArgs("3", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE installations SET installed_version = \?`).
		WithArgs("3", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.UpdateVersion(ctx, "abc", "3"))
	assert.ErrorIs(t, repo.UpdateVersion(ctx, "gone", "3"), ErrInstallationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShopRepoUpsertAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewShopRepo(db)

	mock.ExpectExec(`INSERT INTO shops`).
		WithArgs("demo.myshopify.com", "sealed", "read_themes,write_themes").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(`FROM shops WHERE domain=\?`).
		WithArgs("demo.myshopify.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "access_token_sealed", "scopes", "created_at", "updated_at"}).
			AddRow(3, "demo.myshopify.com", "sealed", "read_themes,write_themes", now, now))
	mock.ExpectQuery(`FROM shops WHERE domain=\?`).
		WithArgs("other.myshopify.com").
		WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	s := &model.Shop{Domain: "demo.myshopify.com", AccessTokenSealed: "sealed", Scopes: "read_themes,write_themes"}
	require.NoError(t, repo.Upsert(ctx, s))
	assert.Equal(t, uint64(3), s.ID)

	got, err := repo.GetByDomain(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "sealed", got.AccessTokenSealed)

	_, err = repo.GetByDomain(ctx, "other.myshopify.com")
	assert.ErrorIs(t, err, ErrShopNotFound)
}
