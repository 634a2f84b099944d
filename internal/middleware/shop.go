package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/repository"
)

// ShopResolver turns an authenticated domain into a connected shop.
type ShopResolver interface {
	Connect(ctx context.Context, domain string) (lifecycle.Shop, error)
}

// RequireShop resolves the shop authenticated by SessionAuth and stores it
// under ContextShop.  Shops that never registered an access token are
// rejected with 403 Forbidden.
func RequireShop(resolver ShopResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			domain := ShopDomain(c)
			if domain == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthenticated"})
			}
			shop, err := resolver.Connect(c.Request().Context(), domain)
			if err != nil {
				if errors.Is(err, repository.ErrShopNotFound) {
					return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "shop is not registered"})
				}
				c.Logger().Errorf("resolve shop %s: %v", domain, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "could not connect shop"})
			}
			c.Set(ContextShop, shop)
			return next(c)
		}
	}
}
