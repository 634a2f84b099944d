// Package facade is the consumer-facing wrapper around the lifecycle
// manager for a single shop: a cached view of the ledger, one-call
// operations that refresh it and batch operations that never abort on a
// single failure.
package facade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/metrics"
)

// Operations is the lifecycle surface the facade drives.
type Operations interface {
	Install(ctx context.Context, shop lifecycle.Shop, slug string) (lifecycle.InstallResult, error)
	Update(ctx context.Context, shop lifecycle.Shop, slug string) (lifecycle.UpdateResult, error)
	Uninstall(ctx context.Context, shop lifecycle.Shop, slug string) (lifecycle.UninstallResult, error)
	CleanupAll(ctx context.Context, shop lifecycle.Shop, dryRun bool) (lifecycle.CleanupResult, error)
	ListInstallations(ctx context.Context, shopID uint64) ([]lifecycle.InstalledSection, error)
}

// BatchResult aggregates a batch.  Both lists keep input order.
type BatchResult struct {
	Success []string          `json:"success"`
	Failed  []string          `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
}

type Option func(*Facade)

// WithConcurrency sets how many batch items run at once.  The default of
// one keeps batches sequential, which is what the Admin API rate limit
// wants.
func WithConcurrency(n int) Option { return func(f *Facade) { f.concurrency = n } }

func WithLogger(l logrus.FieldLogger) Option { return func(f *Facade) { f.log = l } }

// Facade is bound to one shop.  It is safe for concurrent use, but two
// overlapping calls on the same slug are not coordinated.
type Facade struct {
	ops         Operations
	shop        lifecycle.Shop
	concurrency int
	log         logrus.FieldLogger

	mu            sync.RWMutex
	installations []lifecycle.InstalledSection
	lastError     string
}

func New(ops Operations, shop lifecycle.Shop, opts ...Option) *Facade {
	f := &Facade{ops: ops, shop: shop, concurrency: 1, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(f)
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	f.log = f.log.WithField("shop", shop.Domain)
	return f
}

// Installations returns a copy of the cached ledger view.
func (f *Facade) Installations() []lifecycle.InstalledSection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]lifecycle.InstalledSection(nil), f.installations...)
}

// LastError is the message of the most recent failed call, or "".
func (f *Facade) LastError() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastError
}

func (f *Facade) ClearError() {
	f.setError("")
}

func (f *Facade) setError(msg string) {
	f.mu.Lock()
	f.lastError = msg
	f.mu.Unlock()
}

func (f *Facade) fail(err error) error {
	if err != nil {
		f.setError(err.Error())
	}
	return err
}

// Refresh re-reads the ledger view.
func (f *Facade) Refresh(ctx context.Context) error {
	list, err := f.ops.ListInstallations(ctx, f.shop.ID)
	if err != nil {
		return f.fail(fmt.Errorf("load installations: %w", err))
	}
	f.mu.Lock()
	f.installations = list
	f.mu.Unlock()
	return nil
}

// refreshAfter refreshes the view after a mutation.  A refresh failure is
// logged and kept as the last error but does not change the outcome of the
// mutation itself.
func (f *Facade) refreshAfter(ctx context.Context) {
	if err := f.Refresh(ctx); err != nil {
		f.log.WithError(err).Warn("refresh after mutation failed")
	}
}

func (f *Facade) InstallSection(ctx context.Context, slug string) (lifecycle.InstallResult, error) {
	res, err := f.ops.Install(ctx, f.shop, slug)
	if err != nil {
		return res, f.fail(err)
	}
	f.refreshAfter(ctx)
	return res, nil
}

func (f *Facade) UpdateSection(ctx context.Context, slug string) (lifecycle.UpdateResult, error) {
	res, err := f.ops.Update(ctx, f.shop, slug)
	if err != nil {
		return res, f.fail(err)
	}
	f.refreshAfter(ctx)
	return res, nil
}

func (f *Facade) UninstallSection(ctx context.Context, slug string) (lifecycle.UninstallResult, error) {
	res, err := f.ops.Uninstall(ctx, f.shop, slug)
	if err != nil {
		return res, f.fail(err)
	}
	f.refreshAfter(ctx)
	return res, nil
}

// CleanupAll refreshes the view only when something may have changed.
func (f *Facade) CleanupAll(ctx context.Context, dryRun bool) (lifecycle.CleanupResult, error) {
	res, err := f.ops.CleanupAll(ctx, f.shop, dryRun)
	if err != nil {
		return res, f.fail(err)
	}
	if !dryRun {
		f.refreshAfter(ctx)
	}
	return res, nil
}

// InstallSections installs every slug, collecting per-item outcomes.
func (f *Facade) InstallSections(ctx context.Context, slugs []string) BatchResult {
	return f.batch(ctx, "install_sections", "installations", slugs, func(ctx context.Context, slug string) error {
		_, err := f.ops.Install(ctx, f.shop, slug)
		return err
	})
}

// UpdateAllSections updates every installed section that has a newer
// catalog version.  An item only counts as a success when its ledger entry
// was bumped.
func (f *Facade) UpdateAllSections(ctx context.Context) BatchResult {
	if err := f.Refresh(ctx); err != nil {
		return BatchResult{Success: []string{}, Failed: []string{}, Message: err.Error()}
	}
	var slugs []string
	for _, it := range f.Installations() {
		if it.HasUpdate && it.SectionSlug != "" {
			slugs = append(slugs, it.SectionSlug)
		}
	}
	return f.batch(ctx, "update_all_sections", "updates", slugs, func(ctx context.Context, slug string) error {
		res, err := f.ops.Update(ctx, f.shop, slug)
		if err != nil {
			return err
		}
		if !res.Updated {
			return fmt.Errorf("%s: no installation was updated", slug)
		}
		return nil
	})
}

func (f *Facade) batch(ctx context.Context, op, noun string, slugs []string, fn func(context.Context, string) error) BatchResult {
	errs := newTaskQueue(f.concurrency).run(ctx, slugs, fn)

	res := BatchResult{Success: []string{}, Failed: []string{}}
	for i, slug := range slugs {
		if errs[i] == nil {
			res.Success = append(res.Success, slug)
			metrics.RecordBatchItem(op, true)
			continue
		}
		if res.Errors == nil {
			res.Errors = map[string]string{}
		}
		res.Failed = append(res.Failed, slug)
		res.Errors[slug] = errs[i].Error()
		metrics.RecordBatchItem(op, false)
		f.log.WithError(errs[i]).WithFields(logrus.Fields{"op": op, "slug": slug}).Warn("batch item failed")
	}

	if len(res.Failed) > 0 {
		res.Message = fmt.Sprintf("%d %s failed: %s", len(res.Failed), noun, strings.Join(res.Failed, ", "))
		f.setError(res.Message)
	}
	f.refreshAfter(ctx)
	return res
}
