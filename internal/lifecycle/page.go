package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/theme-section-installer/internal/metrics"
	"github.com/iliyamo/theme-section-installer/internal/queue"
)

const defaultPageTitle = "New LP"

var whitespace = regexp.MustCompile(`\s+`)

// TemplateSuffix derives the page template suffix from the selected block
// names.  The result does not depend on selection order.
func TemplateSuffix(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	combo := whitespace.ReplaceAllString(strings.ToLower(strings.Join(sorted, "-")), "-")
	return "refine-" + combo
}

// PageTemplateKey is the theme asset key of a page template.
func PageTemplateKey(suffix string) string {
	return "templates/page." + suffix + ".json"
}

type templateSection struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

type pageTemplate struct {
	Sections map[string]templateSection `json:"sections"`
	Order    []string                   `json:"order"`
}

// PageTemplate renders the JSON page template placing one app block per
// name, in selection order.
func PageTemplate(appBlockPrefix string, names []string) (string, error) {
	tpl := pageTemplate{
		Sections: make(map[string]templateSection, len(names)),
		Order:    make([]string, 0, len(names)),
	}
	for i, name := range names {
		id := "section_" + strconv.Itoa(i)
		tpl.Sections[id] = templateSection{Type: appBlockPrefix + "/" + name, Settings: map[string]any{}}
		tpl.Order = append(tpl.Order, id)
	}
	b, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EditorURL links to the theme editor opened on a page.
func EditorURL(domain string, pageID int64) string {
	q := url.Values{}
	q.Set("resourceId", strconv.FormatInt(pageID, 10))
	q.Set("resourceType", "Page")
	return "https://" + domain + "/admin/themes/current/editor?" + q.Encode()
}

// CreateLandingPage writes a page template holding the selected app blocks
// to the live theme, creates a page rendered with it and returns the theme
// editor URL for that page.
func (m *Manager) CreateLandingPage(ctx context.Context, shop Shop, title string, names []string) (res PageResult, err error) {
	defer func() { metrics.RecordOperation("create_page", err) }()

	if len(names) == 0 {
		return res, ErrEmptySelection
	}
	if err := requireGateway(shop); err != nil {
		return res, err
	}
	if shop.Pages == nil {
		return res, errors.New("lifecycle: shop has no page client")
	}
	if strings.TrimSpace(title) == "" {
		title = defaultPageTitle
	}

	suffix := TemplateSuffix(names)
	key := PageTemplateKey(suffix)
	log := m.opLog(shop, "create_page", "").WithField("template_suffix", suffix)

	themeID, err := m.liveTheme(ctx, shop)
	if err != nil {
		return res, err
	}
	body, err := PageTemplate(m.appBlockPrefix, names)
	if err != nil {
		return res, err
	}
	if err := shop.Gateway.WriteAsset(ctx, themeID, key, body); err != nil {
		log.WithError(err).Error("page template write failed")
		return res, &GatewayError{Op: "write", Key: key, Err: err}
	}

	page, err := shop.Pages.CreatePage(ctx, title, suffix)
	if err != nil {
		log.WithError(err).Error("page create failed")
		return res, &GatewayError{Op: "create_page", Key: suffix, Err: err}
	}

	domain, err := shop.Pages.ShopDomain(ctx)
	if err != nil || domain == "" {
		log.WithError(err).Warn("shop domain lookup failed; using myshopify domain")
		domain = shop.Domain
	}

	log.WithField("page_id", page.ID).Info("landing page created")
	m.publish(ctx, shop, queue.SectionEvent{
		Type:     queue.EventLandingPageCreated,
		ThemeID:  strconv.FormatInt(themeID, 10),
		AssetKey: key,
		Count:    len(names),
	})
	return PageResult{
		Success:        true,
		PageID:         page.ID,
		TemplateSuffix: suffix,
		EditorURL:      EditorURL(domain, page.ID),
		Message:        fmt.Sprintf("Page %q created with %d sections", title, len(names)),
	}, nil
}
