// Package lifecycletest provides in-memory catalog, ledger, gateway and
// page fakes for exercising the lifecycle manager without MySQL or Shopify.
package lifecycletest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/theme-section-installer/internal/model"
	"github.com/iliyamo/theme-section-installer/internal/queue"
	"github.com/iliyamo/theme-section-installer/internal/repository"
	"github.com/iliyamo/theme-section-installer/internal/shopify"
)

// Catalog is an in-memory section catalog.
type Catalog struct {
	mu     sync.RWMutex
	nextID uint64
	bySlug map[string]*model.Section
}

func NewCatalog(sections ...model.Section) *Catalog {
	c := &Catalog{bySlug: map[string]*model.Section{}}
	for _, s := range sections {
		c.Put(s)
	}
	return c
}

// Put adds or replaces a section, keeping the id of an existing slug.
func (c *Catalog) Put(s model.Section) *model.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.bySlug[s.Slug]; ok {
		s.ID = old.ID
	} else {
		c.nextID++
		s.ID = c.nextID
	}
	cp := s
	c.bySlug[s.Slug] = &cp
	return &cp
}

// Remove drops a section from the catalog.
func (c *Catalog) Remove(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bySlug, slug)
}

func (c *Catalog) byID(id uint64) (*model.Section, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.bySlug {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (c *Catalog) GetBySlug(_ context.Context, slug string) (*model.Section, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.bySlug[slug]
	if !ok {
		return nil, repository.ErrSectionNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *Catalog) ListAll(_ context.Context) ([]*model.Section, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Section, 0, len(c.bySlug))
	for _, s := range c.bySlug {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ledger is an in-memory installation ledger enforcing the
// (shop, section) uniqueness the MySQL schema enforces.
type Ledger struct {
	mu      sync.Mutex
	catalog *Catalog
	rows    []*model.Installation

	// DeleteErr makes Delete fail for the given installation ids.
	DeleteErr map[string]error
	// UpdateErr makes UpdateVersion and Reassign fail for the given
	// installation ids.
	UpdateErr map[string]error
	// ListErr makes ListByShop fail.
	ListErr error
}

func NewLedger(catalog *Catalog) *Ledger {
	return &Ledger{catalog: catalog, DeleteErr: map[string]error{}, UpdateErr: map[string]error{}}
}

// Seed inserts a row directly, bypassing the uniqueness check.
func (l *Ledger) Seed(inst model.Installation) *model.Installation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	cp := inst
	l.rows = append(l.rows, &cp)
	return &cp
}

// Rows returns copies of the rows owned by shopID.
func (l *Ledger) Rows(shopID uint64) []model.Installation {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Installation
	for _, r := range l.rows {
		if r.ShopID == shopID {
			out = append(out, *r)
		}
	}
	return out
}

func (l *Ledger) Create(_ context.Context, inst *model.Installation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ShopID == inst.ShopID && r.SectionID == inst.SectionID {
			return repository.ErrInstallationExists
		}
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	cp := *inst
	l.rows = append(l.rows, &cp)
	return nil
}

func (l *Ledger) FindByShopAndSection(_ context.Context, shopID, sectionID uint64) (*model.Installation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ShopID == shopID && r.SectionID == sectionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrInstallationNotFound
}

func (l *Ledger) ListByShop(_ context.Context, shopID uint64) ([]*model.InstallationDetail, error) {
	if l.ListErr != nil {
		return nil, l.ListErr
	}
	l.mu.Lock()
	rows := make([]model.Installation, 0, len(l.rows))
	for _, r := range l.rows {
		if r.ShopID == shopID {
			rows = append(rows, *r)
		}
	}
	l.mu.Unlock()

	out := make([]*model.InstallationDetail, 0, len(rows))
	for _, r := range rows {
		d := &model.InstallationDetail{Installation: r}
		if s, ok := l.catalog.byID(r.SectionID); ok {
			d.SectionSlug, d.SectionName, d.SectionVersion = s.Slug, s.Name, s.Version
		}
		out = append(out, d)
	}
	return out, nil
}

func (l *Ledger) UpdateVersion(_ context.Context, id, version string) error {
	return l.mutate(id, func(r *model.Installation) { r.InstalledVersion = version })
}

func (l *Ledger) Reassign(_ context.Context, id, version, themeID string) error {
	return l.mutate(id, func(r *model.Installation) {
		r.InstalledVersion = version
		r.ThemeID = themeID
	})
}

func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.DeleteErr[id]; err != nil {
		return err
	}
	for i, r := range l.rows {
		if r.ID == id {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrInstallationNotFound
}

func (l *Ledger) mutate(id string, fn func(*model.Installation)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.UpdateErr[id]; err != nil {
		return err
	}
	for _, r := range l.rows {
		if r.ID == id {
			fn(r)
			return nil
		}
	}
	return repository.ErrInstallationNotFound
}

// Gateway is an in-memory theme filesystem.  Failures can be injected per
// operation and asset key with Fail.
type Gateway struct {
	mu       sync.Mutex
	themes   []model.Theme
	assets   map[int64]map[string]string
	failures map[string]error
	calls    []string

	// ThemeErr makes ResolveLiveTheme fail.
	ThemeErr error
}

// NewGateway returns a gateway whose live theme has id liveThemeID.  Pass 0
// for a shop without a published theme.
func NewGateway(liveThemeID int64) *Gateway {
	g := &Gateway{assets: map[int64]map[string]string{}, failures: map[string]error{}}
	if liveThemeID != 0 {
		g.themes = append(g.themes, model.Theme{ID: liveThemeID, Name: "Live", Role: model.ThemeRoleMain})
	}
	return g
}

// Fail makes op ("exists", "read", "write", "delete") on key return err.
func (g *Gateway) Fail(op, key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op+":"+key] = err
}

// SetAsset writes an asset directly, as a merchant would in the editor.
func (g *Gateway) SetAsset(themeID int64, key, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.assets[themeID] == nil {
		g.assets[themeID] = map[string]string{}
	}
	g.assets[themeID][key] = value
}

// Asset returns the stored value and whether it exists.
func (g *Gateway) Asset(themeID int64, key string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.assets[themeID][key]
	return v, ok
}

// Calls returns the operations performed so far, as "op:key".
func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *Gateway) enter(op, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, op+":"+key)
	return g.failures[op+":"+key]
}

func (g *Gateway) ResolveLiveTheme(_ context.Context) (int64, error) {
	if err := g.enter("themes", ""); err != nil {
		return 0, err
	}
	if g.ThemeErr != nil {
		return 0, g.ThemeErr
	}
	for _, t := range g.themes {
		if t.Role == model.ThemeRoleMain {
			return t.ID, nil
		}
	}
	return 0, shopify.ErrNoLiveTheme
}

func (g *Gateway) AssetExists(_ context.Context, themeID int64, key string) (bool, error) {
	if err := g.enter("exists", key); err != nil {
		return false, err
	}
	_, ok := g.Asset(themeID, key)
	return ok, nil
}

func (g *Gateway) ReadAsset(_ context.Context, themeID int64, key string) (string, error) {
	if err := g.enter("read", key); err != nil {
		return "", err
	}
	v, ok := g.Asset(themeID, key)
	if !ok {
		return "", shopify.ErrAssetNotFound
	}
	return v, nil
}

func (g *Gateway) WriteAsset(_ context.Context, themeID int64, key, value string) error {
	if err := g.enter("write", key); err != nil {
		return err
	}
	g.SetAsset(themeID, key, value)
	return nil
}

func (g *Gateway) DeleteAsset(_ context.Context, themeID int64, key string) error {
	if err := g.enter("delete", key); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.assets[themeID], key)
	return nil
}

// Pages records created pages.
type Pages struct {
	mu      sync.Mutex
	nextID  int64
	Created []model.Page
	Domain  string
	Err     error
}

func (p *Pages) CreatePage(_ context.Context, title, suffix string) (model.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return model.Page{}, p.Err
	}
	p.nextID++
	page := model.Page{ID: 1000 + p.nextID, Title: title, TemplateSuffix: suffix}
	p.Created = append(p.Created, page)
	return page, nil
}

func (p *Pages) ShopDomain(_ context.Context) (string, error) {
	if p.Domain == "" {
		return "", fmt.Errorf("shop domain unavailable")
	}
	return p.Domain, nil
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	Events []queue.SectionEvent
	Err    error
}

func (e *Events) Publish(_ context.Context, ev queue.SectionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.Events = append(e.Events, ev)
	return nil
}

// Types returns the recorded event types in order.
func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.Events))
	for i, ev := range e.Events {
		out[i] = ev.Type
	}
	return out
}

// Backups records snapshots in memory.
type Backups struct {
	mu    sync.Mutex
	Saved map[string]string
}

func (b *Backups) Save(_ context.Context, shop string, themeID int64, key, body, reason string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Saved == nil {
		b.Saved = map[string]string{}
	}
	objectKey := shop + "/" + strconv.FormatInt(themeID, 10) + "/" + key + "/" + reason
	b.Saved[objectKey] = body
	return objectKey, nil
}
