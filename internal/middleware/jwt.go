package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/theme-section-installer/internal/utils"
)

// Context keys set by SessionAuth.
const (
	ContextShopDomain = "shop_domain"
	ContextUserID     = "user_id"
)

// SessionAuth returns an Echo middleware that validates the Shopify session
// token sent by the embedded app as a Bearer token.  The token must be
// HS256-signed with the app secret and carry the app's API key as its
// audience.  On success the shop domain from the dest claim and the staff
// user id from sub are stored in the context.
func SessionAuth(apiSecret, apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseSessionToken(apiSecret, apiKey, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid session token"})
			}
			// dest was validated by ParseSessionToken
			domain, _ := utils.ShopDomain(claims.Dest)

			c.Set(ContextShopDomain, domain)
			c.Set(ContextUserID, claims.Subject)
			return next(c)
		}
	}
}
