package model

import "time"

// Installation represents a row in the `installations` table.  It links
// a shop, a section and the version last written to the shop's theme.
// At most one installation exists per (shop, section) pair; the schema
// enforces this with a composite unique key.
//
// Fields:
//  ID               – system generated UUID.
//  ShopID           – shop that owns the installation.
//  SectionID        – catalog section that was installed.
//  InstalledVersion – copy of the section version at install/update time.
//  ThemeID          – theme the asset was written to.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Installation struct {
	ID               string    // installations.id
	ShopID           uint64    // installations.shop_id
	SectionID        uint64    // installations.section_id
	InstalledVersion string    // installations.installed_version
	ThemeID          string    // installations.theme_id
	CreatedAt        time.Time // installations.created_at
	UpdatedAt        time.Time // installations.updated_at
}

// InstallationDetail is an installation joined with its catalog section.
// SectionSlug, SectionName and SectionVersion are empty when the section
// row no longer exists.
type InstallationDetail struct {
	Installation
	SectionSlug    string
	SectionName    string
	SectionVersion string
}
