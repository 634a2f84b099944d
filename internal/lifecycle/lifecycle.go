// Package lifecycle installs, updates and removes catalog sections in a
// shop's live theme while keeping the installation ledger in step.
//
// The remote theme and the ledger cannot be updated atomically.  Install
// and Update surface every remote failure; Uninstall and CleanupAll only
// need the section to end up absent and downgrade remote failures to
// warnings.
package lifecycle

import (
	"context"

	"github.com/iliyamo/theme-section-installer/internal/model"
	"github.com/iliyamo/theme-section-installer/internal/queue"
)

// Catalog is the read-only section catalog.  GetBySlug returns
// repository.ErrSectionNotFound for unknown slugs.
type Catalog interface {
	GetBySlug(ctx context.Context, slug string) (*model.Section, error)
	ListAll(ctx context.Context) ([]*model.Section, error)
}

// Ledger persists installations.  Create returns
// repository.ErrInstallationExists when the (shop, section) pair is taken;
// lookups return repository.ErrInstallationNotFound.
type Ledger interface {
	Create(ctx context.Context, inst *model.Installation) error
	FindByShopAndSection(ctx context.Context, shopID, sectionID uint64) (*model.Installation, error)
	ListByShop(ctx context.Context, shopID uint64) ([]*model.InstallationDetail, error)
	UpdateVersion(ctx context.Context, id, version string) error
	Reassign(ctx context.Context, id, version, themeID string) error
	Delete(ctx context.Context, id string) error
}

// Gateway is the remote theme filesystem of one shop.
type Gateway interface {
	ResolveLiveTheme(ctx context.Context) (int64, error)
	AssetExists(ctx context.Context, themeID int64, key string) (bool, error)
	ReadAsset(ctx context.Context, themeID int64, key string) (string, error)
	WriteAsset(ctx context.Context, themeID int64, key, value string) error
	DeleteAsset(ctx context.Context, themeID int64, key string) error
}

// PageCreator creates online store pages for one shop.
type PageCreator interface {
	CreatePage(ctx context.Context, title, templateSuffix string) (model.Page, error)
	ShopDomain(ctx context.Context) (string, error)
}

// Backups snapshots an asset body before it is overwritten or deleted.
type Backups interface {
	Save(ctx context.Context, shop string, themeID int64, assetKey, body, reason string) (string, error)
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SectionEvent) error
}

// Shop is the explicit per-call context: which ledger rows belong to the
// caller and which remote theme filesystem to address.
type Shop struct {
	ID      uint64
	Domain  string
	Gateway Gateway
	Pages   PageCreator
}

type InstallResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type UpdateResult struct {
	Success bool `json:"success"`
	// Updated is true when an existing ledger entry was bumped.
	Updated bool   `json:"updated"`
	Message string `json:"message,omitempty"`
}

type UninstallResult struct {
	Success bool `json:"success"`
}

type CleanupResult struct {
	Success        bool     `json:"success"`
	Count          int      `json:"count"`
	DeletedCount   int      `json:"deletedCount"`
	TargetSections []string `json:"targetSections,omitempty"`
}

// InstalledSection is the ledger view shown to the merchant.
type InstalledSection struct {
	ID               string `json:"id"`
	SectionSlug      string `json:"sectionSlug"`
	SectionName      string `json:"sectionName"`
	InstalledVersion string `json:"installedVersion"`
	CurrentVersion   string `json:"currentVersion"`
	ThemeID          string `json:"themeId"`
	HasUpdate        bool   `json:"hasUpdate"`
}

type PageResult struct {
	Success        bool   `json:"success"`
	PageID         int64  `json:"pageId"`
	TemplateSuffix string `json:"templateSuffix"`
	EditorURL      string `json:"editorUrl"`
	Message        string `json:"message,omitempty"`
}
