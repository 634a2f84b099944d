package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/theme-section-installer/internal/model"
)

// Gateway presents one stable contract over the theme, asset, page and
// shop endpoints: resolve the live theme, then exists/read/write/delete
// a single asset by (theme id, key).
type Gateway struct {
	client *Client
}

func NewGateway(c *Client) *Gateway {
	return &Gateway{client: c}
}

type asset struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

type assetEnvelope struct {
	Asset asset `json:"asset"`
}

func assetsPath(themeID int64) string {
	return "themes/" + strconv.FormatInt(themeID, 10) + "/assets.json"
}

func assetQuery(key string) url.Values {
	return url.Values{"asset[key]": []string{key}}
}

// ListThemes returns every theme of the shop.
func (g *Gateway) ListThemes(ctx context.Context) ([]model.Theme, error) {
	var out struct {
		Themes []model.Theme `json:"themes"`
	}
	if err := g.client.Do(ctx, http.MethodGet, "themes.json", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Themes, nil
}

// ResolveLiveTheme returns the id of the theme whose role is "main".
// It is never cached; the published theme can change between calls.
func (g *Gateway) ResolveLiveTheme(ctx context.Context) (int64, error) {
	themes, err := g.ListThemes(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range themes {
		if t.Role == model.ThemeRoleMain {
			return t.ID, nil
		}
	}
	return 0, ErrNoLiveTheme
}

// AssetExists reports whether key is present in the theme.  Only a
// not-found answer maps to false; every other failure is returned.
func (g *Gateway) AssetExists(ctx context.Context, themeID int64, key string) (bool, error) {
	_, err := g.ReadAsset(ctx, themeID, key)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// ReadAsset returns the body of key, or ErrAssetNotFound.
func (g *Gateway) ReadAsset(ctx context.Context, themeID int64, key string) (string, error) {
	var out assetEnvelope
	err := g.client.Do(ctx, http.MethodGet, assetsPath(themeID), assetQuery(key), nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return "", ErrAssetNotFound
		}
		return "", err
	}
	return out.Asset.Value, nil
}

// WriteAsset creates or replaces key.  The Admin API uses the same PUT for
// both, so the call is idempotent.
func (g *Gateway) WriteAsset(ctx context.Context, themeID int64, key, value string) error {
	in := assetEnvelope{Asset: asset{Key: key, Value: value}}
	return g.client.Do(ctx, http.MethodPut, assetsPath(themeID), nil, in, nil)
}

// DeleteAsset removes key.  An asset that is already gone counts as deleted.
func (g *Gateway) DeleteAsset(ctx context.Context, themeID int64, key string) error {
	err := g.client.Do(ctx, http.MethodDelete, assetsPath(themeID), assetQuery(key), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// CreatePage creates a published, empty page rendered with the
// page.{templateSuffix} template.
func (g *Gateway) CreatePage(ctx context.Context, title, templateSuffix string) (model.Page, error) {
	in := map[string]any{
		"page": map[string]any{
			"title":           title,
			"template_suffix": templateSuffix,
			"body_html":       "",
		},
	}
	var out struct {
		Page model.Page `json:"page"`
	}
	if err := g.client.Do(ctx, http.MethodPost, "pages.json", nil, in, &out); err != nil {
		return model.Page{}, err
	}
	if out.Page.ID == 0 {
		return model.Page{}, errors.New("shopify: page create returned no id")
	}
	return out.Page, nil
}

// ShopDomain returns the shop's primary domain as reported by the API,
// falling back to the myshopify domain the client is bound to.
func (g *Gateway) ShopDomain(ctx context.Context) (string, error) {
	var out struct {
		Shop struct {
			Domain          string `json:"domain"`
			MyshopifyDomain string `json:"myshopify_domain"`
		} `json:"shop"`
	}
	if err := g.client.Do(ctx, http.MethodGet, "shop.json", nil, nil, &out); err != nil {
		return "", err
	}
	switch {
	case out.Shop.Domain != "":
		return out.Shop.Domain, nil
	case out.Shop.MyshopifyDomain != "":
		return out.Shop.MyshopifyDomain, nil
	default:
		return g.client.Shop(), nil
	}
}
