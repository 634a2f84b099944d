package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theme-section-installer/internal/metrics"
	"github.com/iliyamo/theme-section-installer/internal/model"
	"github.com/iliyamo/theme-section-installer/internal/queue"
	"github.com/iliyamo/theme-section-installer/internal/repository"
	"github.com/iliyamo/theme-section-installer/internal/shopify"
)

// DefaultAppBlockPrefix is the app block namespace used in page templates.
const DefaultAppBlockPrefix = "shopify://apps/refine-lp-builder/blocks"

// Manager runs lifecycle operations.  It holds no per-shop state; every
// call names its Shop explicitly.
type Manager struct {
	catalog        Catalog
	ledger         Ledger
	backups        Backups
	events         EventPublisher
	log            logrus.FieldLogger
	appBlockPrefix string
	now            func() time.Time
}

type Option func(*Manager)

func WithBackups(b Backups) Option { return func(m *Manager) { m.backups = b } }

func WithEvents(p EventPublisher) Option { return func(m *Manager) { m.events = p } }

func WithLogger(l logrus.FieldLogger) Option { return func(m *Manager) { m.log = l } }

func WithAppBlockPrefix(p string) Option {
	return func(m *Manager) {
		if p != "" {
			m.appBlockPrefix = p
		}
	}
}

func NewManager(catalog Catalog, ledger Ledger, opts ...Option) *Manager {
	m := &Manager{
		catalog:        catalog,
		ledger:         ledger,
		log:            logrus.StandardLogger(),
		appBlockPrefix: DefaultAppBlockPrefix,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Install writes a catalog section into the live theme and records it.
//
// An asset already present at the target key is a conflict, never an
// overwrite, since the merchant may have customised it.  A failure after
// the asset write leaves the asset without a ledger entry; Update
// recovers from that state.
func (m *Manager) Install(ctx context.Context, shop Shop, slug string) (res InstallResult, err error) {
	defer func() { metrics.RecordOperation("install", err) }()
	log := m.opLog(shop, "install", slug)

	if err := requireGateway(shop); err != nil {
		return res, err
	}
	sec, err := m.section(ctx, slug)
	if err != nil {
		return res, err
	}
	themeID, err := m.liveTheme(ctx, shop)
	if err != nil {
		return res, err
	}
	key := sec.AssetKey()

	exists, err := shop.Gateway.AssetExists(ctx, themeID, key)
	if err != nil {
		return res, &GatewayError{Op: "exists", Key: key, Err: err}
	}
	if exists {
		return res, fmt.Errorf("%w: %s", ErrAlreadyInstalled, key)
	}
	if err := shop.Gateway.WriteAsset(ctx, themeID, key, sec.LiquidCode); err != nil {
		return res, &GatewayError{Op: "write", Key: key, Err: err}
	}

	theme := strconv.FormatInt(themeID, 10)
	if err := m.record(ctx, shop, sec, theme); err != nil {
		log.WithError(err).WithField("asset", key).Error("asset written but ledger entry failed")
		return res, err
	}

	log.WithFields(logrus.Fields{"version": sec.Version, "theme_id": theme}).Info("section installed")
	m.publish(ctx, shop, queue.SectionEvent{
		Type:        queue.EventSectionInstalled,
		SectionSlug: sec.Slug,
		Version:     sec.Version,
		ThemeID:     theme,
		AssetKey:    key,
	})
	return InstallResult{Success: true, Message: fmt.Sprintf("Section %q installed", sec.Name)}, nil
}

// record creates the ledger entry, or re-points an existing one left
// behind when the asset was removed out of band.
func (m *Manager) record(ctx context.Context, shop Shop, sec *model.Section, theme string) error {
	inst := &model.Installation{
		ShopID:           shop.ID,
		SectionID:        sec.ID,
		InstalledVersion: sec.Version,
		ThemeID:          theme,
	}
	err := m.ledger.Create(ctx, inst)
	if !errors.Is(err, repository.ErrInstallationExists) {
		return err
	}
	existing, err := m.ledger.FindByShopAndSection(ctx, shop.ID, sec.ID)
	if err != nil {
		return err
	}
	m.opLog(shop, "install", sec.Slug).WithField("installation_id", existing.ID).Warn("reusing stale ledger entry")
	return m.ledger.Reassign(ctx, existing.ID, sec.Version, theme)
}

// Update force-writes the catalog body over the live theme asset and bumps
// the ledger entry if there is one.  With no ledger entry the asset is
// still written and no entry is created.
func (m *Manager) Update(ctx context.Context, shop Shop, slug string) (res UpdateResult, err error) {
	defer func() { metrics.RecordOperation("update", err) }()
	log := m.opLog(shop, "update", slug)

	if err := requireGateway(shop); err != nil {
		return res, err
	}
	sec, err := m.section(ctx, slug)
	if err != nil {
		return res, err
	}
	themeID, err := m.liveTheme(ctx, shop)
	if err != nil {
		return res, err
	}
	key := sec.AssetKey()

	m.snapshot(ctx, shop, themeID, key, "update")
	if err := shop.Gateway.WriteAsset(ctx, themeID, key, sec.LiquidCode); err != nil {
		return res, &GatewayError{Op: "write", Key: key, Err: err}
	}

	theme := strconv.FormatInt(themeID, 10)
	inst, err := m.ledger.FindByShopAndSection(ctx, shop.ID, sec.ID)
	switch {
	case errors.Is(err, repository.ErrInstallationNotFound):
		log.Info("asset updated without a ledger entry")
		return UpdateResult{Success: true, Message: fmt.Sprintf("Section %q written to theme; it was not installed", sec.Name)}, nil
	case err != nil:
		return res, err
	}
	err = m.ledger.UpdateVersion(ctx, inst.ID, sec.Version)
	switch {
	case errors.Is(err, repository.ErrInstallationNotFound):
		// removed between the lookup and the bump, e.g. by a concurrent uninstall
		log.WithField("installation_id", inst.ID).Warn("ledger entry vanished during update")
		return UpdateResult{Success: true, Message: fmt.Sprintf("Section %q written to theme; it is no longer installed", sec.Name)}, nil
	case err != nil:
		return res, err
	}

	log.WithFields(logrus.Fields{"from": inst.InstalledVersion, "to": sec.Version}).Info("section updated")
	m.publish(ctx, shop, queue.SectionEvent{
		Type:        queue.EventSectionUpdated,
		SectionSlug: sec.Slug,
		Version:     sec.Version,
		ThemeID:     theme,
		AssetKey:    key,
	})
	return UpdateResult{Success: true, Updated: true, Message: fmt.Sprintf("Section %q updated to version %s", sec.Name, sec.Version)}, nil
}

// Uninstall ensures the section is absent from the live theme and the
// ledger.  Remote failures are logged only; ledger failures are returned.
func (m *Manager) Uninstall(ctx context.Context, shop Shop, slug string) (res UninstallResult, err error) {
	defer func() { metrics.RecordOperation("uninstall", err) }()
	log := m.opLog(shop, "uninstall", slug)
	key := model.SectionAssetKey(slug)

	var theme string
	if themeID, terr := m.resolveForRemoval(ctx, shop); terr != nil {
		log.WithError(terr).Warn("skipping asset delete")
	} else {
		theme = strconv.FormatInt(themeID, 10)
		m.snapshot(ctx, shop, themeID, key, "uninstall")
		if derr := shop.Gateway.DeleteAsset(ctx, themeID, key); derr != nil {
			log.WithError(derr).Warn("asset delete failed")
		}
	}

	sec, err := m.catalog.GetBySlug(ctx, slug)
	switch {
	case errors.Is(err, repository.ErrSectionNotFound):
		log.Info("section not in catalog; no ledger entry to remove")
		return UninstallResult{Success: true}, nil
	case err != nil:
		return res, err
	}
	inst, err := m.ledger.FindByShopAndSection(ctx, shop.ID, sec.ID)
	switch {
	case errors.Is(err, repository.ErrInstallationNotFound):
		return UninstallResult{Success: true}, nil
	case err != nil:
		return res, err
	}
	if err := m.ledger.Delete(ctx, inst.ID); err != nil && !errors.Is(err, repository.ErrInstallationNotFound) {
		return res, err
	}

	log.Info("section uninstalled")
	m.publish(ctx, shop, queue.SectionEvent{
		Type:        queue.EventSectionUninstalled,
		SectionSlug: slug,
		ThemeID:     theme,
		AssetKey:    key,
	})
	return UninstallResult{Success: true}, nil
}

// CleanupAll removes every installed section of the shop, typically before
// the app is uninstalled.  A dry run only reports what would be removed
// and makes no remote call.  Otherwise every ledger entry is deleted even
// when its asset could not be.
func (m *Manager) CleanupAll(ctx context.Context, shop Shop, dryRun bool) (res CleanupResult, err error) {
	defer func() { metrics.RecordOperation("cleanup", err) }()
	log := m.opLog(shop, "cleanup", "").WithField("dry_run", dryRun)

	items, err := m.ledger.ListByShop(ctx, shop.ID)
	if err != nil {
		return res, err
	}
	if dryRun {
		targets := make([]string, 0, len(items))
		for _, it := range items {
			if it.SectionSlug != "" {
				targets = append(targets, it.SectionSlug)
			}
		}
		return CleanupResult{Success: true, Count: len(items), TargetSections: targets}, nil
	}

	// one theme for the whole loop
	themeID, terr := m.resolveForRemoval(ctx, shop)
	if terr != nil {
		log.WithError(terr).Warn("skipping asset deletes")
	}

	deleted := 0
	for _, it := range items {
		if terr == nil && it.SectionSlug != "" {
			key := model.SectionAssetKey(it.SectionSlug)
			if derr := shop.Gateway.DeleteAsset(ctx, themeID, key); derr != nil {
				log.WithError(derr).WithField("asset", key).Warn("asset delete failed; continuing")
			}
		}
		if lerr := m.ledger.Delete(ctx, it.ID); lerr != nil && !errors.Is(lerr, repository.ErrInstallationNotFound) {
			log.WithError(lerr).WithField("installation_id", it.ID).Error("ledger delete failed; continuing")
			continue
		}
		deleted++
	}

	log.WithFields(logrus.Fields{"count": len(items), "deleted": deleted}).Info("cleanup finished")
	m.publish(ctx, shop, queue.SectionEvent{Type: queue.EventSectionsCleanedUp, Count: deleted})
	return CleanupResult{Success: true, Count: len(items), DeletedCount: deleted}, nil
}

// ListInstallations returns the shop's ledger joined with the catalog.
// When the catalog row is gone the installed version stands in for the
// current one, so no update is offered.
func (m *Manager) ListInstallations(ctx context.Context, shopID uint64) ([]InstalledSection, error) {
	items, err := m.ledger.ListByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := make([]InstalledSection, 0, len(items))
	for _, it := range items {
		current := it.SectionVersion
		if current == "" {
			current = it.InstalledVersion
		}
		out = append(out, InstalledSection{
			ID:               it.ID,
			SectionSlug:      it.SectionSlug,
			SectionName:      it.SectionName,
			InstalledVersion: it.InstalledVersion,
			CurrentVersion:   current,
			ThemeID:          it.ThemeID,
			HasUpdate:        it.InstalledVersion != current,
		})
	}
	return out, nil
}

// ListSections returns the whole catalog.
func (m *Manager) ListSections(ctx context.Context) ([]*model.Section, error) {
	return m.catalog.ListAll(ctx)
}

func (m *Manager) section(ctx context.Context, slug string) (*model.Section, error) {
	sec, err := m.catalog.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrSectionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, slug)
	}
	return sec, err
}

func (m *Manager) liveTheme(ctx context.Context, shop Shop) (int64, error) {
	id, err := shop.Gateway.ResolveLiveTheme(ctx)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, ErrNoLiveTheme):
		return 0, err
	default:
		return 0, &GatewayError{Op: "resolve_theme", Err: err}
	}
}

func (m *Manager) resolveForRemoval(ctx context.Context, shop Shop) (int64, error) {
	if err := requireGateway(shop); err != nil {
		return 0, err
	}
	return m.liveTheme(ctx, shop)
}

// snapshot saves the current asset body when backups are enabled.  It
// never fails the calling operation.
func (m *Manager) snapshot(ctx context.Context, shop Shop, themeID int64, key, reason string) {
	if m.backups == nil {
		return
	}
	log := m.log.WithFields(logrus.Fields{"shop": shop.Domain, "asset": key, "reason": reason})
	body, err := shop.Gateway.ReadAsset(ctx, themeID, key)
	if err != nil {
		if !shopify.IsNotFound(err) {
			log.WithError(err).Warn("backup read failed")
		}
		return
	}
	objectKey, err := m.backups.Save(ctx, shop.Domain, themeID, key, body, reason)
	if err != nil {
		log.WithError(err).Warn("backup save failed")
		return
	}
	log.WithField("object", objectKey).Debug("asset backed up")
}

func (m *Manager) publish(ctx context.Context, shop Shop, ev queue.SectionEvent) {
	if m.events == nil {
		return
	}
	ev.ShopID = shop.ID
	ev.ShopDomain = shop.Domain
	ev.OccurredAt = m.now().UTC().Format(time.RFC3339)
	if err := m.events.Publish(ctx, ev); err != nil {
		m.log.WithError(err).WithField("event", ev.Type).Warn("event publish failed")
	}
}

func (m *Manager) opLog(shop Shop, op, slug string) logrus.FieldLogger {
	f := logrus.Fields{"op": op, "shop": shop.Domain}
	if slug != "" {
		f["slug"] = slug
	}
	return m.log.WithFields(f)
}

func requireGateway(shop Shop) error {
	if shop.Gateway == nil {
		return errors.New("lifecycle: shop has no gateway")
	}
	return nil
}
