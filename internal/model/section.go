package model

import "time"

// Section represents an installable section definition as stored in
// the `sections` table.  Sections are authored out-of-band by an app
// operator and are read-only from the installer's point of view.
//
// Fields:
//  ID         – primary key identifier.
//  Slug       – unique identifier, used as the asset filename stem.
//  Name       – display name shown in the UI.
//  LiquidCode – template body written into the theme.
//  Version    – opaque version token; compared for equality only.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type Section struct {
	ID         uint64    `json:"id"`          // sections.id
	Slug       string    `json:"slug"`        // sections.slug
	Name       string    `json:"name"`        // sections.name
	LiquidCode string    `json:"liquid_code"` // sections.liquid_code
	Version    string    `json:"version"`     // sections.version
	CreatedAt  time.Time `json:"-"`           // sections.created_at
	UpdatedAt  time.Time `json:"-"`           // sections.updated_at
}

// AssetKey returns the theme asset key the section is written to.
func (s *Section) AssetKey() string {
	return SectionAssetKey(s.Slug)
}

// SectionAssetKey builds the theme asset key for a section slug.
func SectionAssetKey(slug string) string {
	return "sections/" + slug + ".liquid"
}
