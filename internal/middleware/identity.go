package middleware

// identity.go holds helpers shared across middleware files for reading the
// authenticated shop and staff user out of the Echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
)

// ContextShop is the key under which RequireShop stores the lifecycle.Shop.
const ContextShop = "shop"

// ShopDomain returns the authenticated shop domain, or "" before
// SessionAuth has run.
func ShopDomain(c echo.Context) string {
	if s, ok := c.Get(ContextShopDomain).(string); ok {
		return s
	}
	return ""
}

// userID returns the staff user id, or "anon".
func userID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// CurrentShop returns the shop resolved by RequireShop.
func CurrentShop(c echo.Context) (lifecycle.Shop, bool) {
	s, ok := c.Get(ContextShop).(lifecycle.Shop)
	return s, ok
}
