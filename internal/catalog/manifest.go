// Package catalog loads section definitions from a YAML manifest and syncs
// them into the catalog table.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

// Manifest is the on-disk catalog description:
//
//	sections:
//	  - slug: hero-banner
//	    name: Hero Banner
//	    version: "3"
//	    file: sections/hero-banner.liquid
type Manifest struct {
	Sections []Entry `yaml:"sections"`
}

type Entry struct {
	Slug    string `yaml:"slug"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// File is the Liquid source, relative to the manifest.
	File string `yaml:"file"`
}

// slugs become asset file names
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Load parses the manifest at path and reads every Liquid file it names.
func Load(path string) ([]model.Section, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)

	seen := map[string]bool{}
	out := make([]model.Section, 0, len(m.Sections))
	for i, e := range m.Sections {
		if !slugPattern.MatchString(e.Slug) {
			return nil, fmt.Errorf("sections[%d]: invalid slug %q", i, e.Slug)
		}
		if seen[e.Slug] {
			return nil, fmt.Errorf("sections[%d]: duplicate slug %q", i, e.Slug)
		}
		seen[e.Slug] = true
		if e.Version == "" {
			return nil, fmt.Errorf("section %s: version is required", e.Slug)
		}
		if e.File == "" {
			return nil, fmt.Errorf("section %s: file is required", e.Slug)
		}
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		code, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", e.Slug, err)
		}
		name := e.Name
		if name == "" {
			name = e.Slug
		}
		out = append(out, model.Section{Slug: e.Slug, Name: name, Version: e.Version, LiquidCode: string(code)})
	}
	return out, nil
}

// Store is where synced sections are written.
type Store interface {
	Upsert(ctx context.Context, s *model.Section) error
}

// Sync upserts every section and returns how many were written.
func Sync(ctx context.Context, store Store, sections []model.Section) (int, error) {
	for i := range sections {
		if err := store.Upsert(ctx, &sections[i]); err != nil {
			return i, fmt.Errorf("upsert %s: %w", sections[i].Slug, err)
		}
	}
	return len(sections), nil
}
