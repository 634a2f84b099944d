package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
)

func TestTemplateSuffix(t *testing.T) {
	assert.Equal(t, "refine-faq-hero-banner", lifecycle.TemplateSuffix([]string{"Hero Banner", "FAQ"}))
	assert.Equal(t, lifecycle.TemplateSuffix([]string{"b", "a"}), lifecycle.TemplateSuffix([]string{"a", "b"}))
	assert.Equal(t, "refine-a-b", lifecycle.TemplateSuffix([]string{"A\t \nB"}))
}

func TestPageTemplate(t *testing.T) {
	body, err := lifecycle.PageTemplate("shopify://apps/x/blocks", []string{"Hero", "FAQ"})
	require.NoError(t, err)

	var tpl struct {
		Sections map[string]struct {
			Type     string         `json:"type"`
			Settings map[string]any `json:"settings"`
		} `json:"sections"`
		Order []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &tpl))
	assert.Equal(t, []string{"section_0", "section_1"}, tpl.Order)
	assert.Equal(t, "shopify://apps/x/blocks/Hero", tpl.Sections["section_0"].Type)
	assert.Equal(t, "shopify://apps/x/blocks/FAQ", tpl.Sections["section_1"].Type)
	assert.NotNil(t, tpl.Sections["section_0"].Settings)
	assert.Contains(t, body, "\n  \"sections\"")
}

func TestEditorURL(t *testing.T) {
	assert.Equal(t,
		"https://shop.example.com/admin/themes/current/editor?resourceId=42&resourceType=Page",
		lifecycle.EditorURL("shop.example.com", 42))
}

func TestCreateLandingPage(t *testing.T) {
	f := newFixture(t)

	res, err := f.mgr.CreateLandingPage(context.Background(), f.shop, "", []string{"Hero", "FAQ"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "refine-faq-hero", res.TemplateSuffix)
	assert.Equal(t, "https://shop.example.com/admin/themes/current/editor?resourceId=1001&resourceType=Page", res.EditorURL)

	_, ok := f.gateway.Asset(themeID, "templates/page.refine-faq-hero.json")
	assert.True(t, ok)
	require.Len(t, f.pages.Created, 1)
	assert.Equal(t, "New LP", f.pages.Created[0].Title)
	assert.Equal(t, "refine-faq-hero", f.pages.Created[0].TemplateSuffix)
}

func TestCreateLandingPageFallsBackToShopDomain(t *testing.T) {
	f := newFixture(t)
	f.pages.Domain = ""

	res, err := f.mgr.CreateLandingPage(context.Background(), f.shop, "Spring", []string{"Hero"})
	require.NoError(t, err)
	assert.Contains(t, res.EditorURL, "https://demo.myshopify.com/admin/")
}

func TestCreateLandingPageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.CreateLandingPage(ctx, f.shop, "x", nil)
	assert.ErrorIs(t, err, lifecycle.ErrEmptySelection)

	f.pages.Err = errors.New("422")
	_, err = f.mgr.CreateLandingPage(ctx, f.shop, "x", []string{"Hero"})
	var ge *lifecycle.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "create_page", ge.Op)
}
