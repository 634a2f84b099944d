package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/model"
	"github.com/iliyamo/theme-section-installer/internal/shopify"
	"github.com/iliyamo/theme-section-installer/internal/utils"
)

// ShopStore persists registered shops.
type ShopStore interface {
	GetByDomain(ctx context.Context, domain string) (*model.Shop, error)
	Upsert(ctx context.Context, s *model.Shop) error
}

// TokenSealer encrypts access tokens at rest.
type TokenSealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// ShopConnector resolves a shop domain into the explicit lifecycle.Shop
// every lifecycle operation takes.
type ShopConnector struct {
	shops  ShopStore
	sealer TokenSealer
	opts   shopify.Options
}

func NewShopConnector(shops ShopStore, sealer TokenSealer, opts shopify.Options) *ShopConnector {
	return &ShopConnector{shops: shops, sealer: sealer, opts: opts}
}

// Connect looks up domain, opens its access token and returns a Shop with
// a gateway bound to that token.
func (c *ShopConnector) Connect(ctx context.Context, domain string) (lifecycle.Shop, error) {
	domain, err := utils.ShopDomain(domain)
	if err != nil {
		return lifecycle.Shop{}, err
	}
	s, err := c.shops.GetByDomain(ctx, domain)
	if err != nil {
		return lifecycle.Shop{}, fmt.Errorf("shop %s: %w", domain, err)
	}
	token, err := c.sealer.Open(s.AccessTokenSealed)
	if err != nil {
		return lifecycle.Shop{}, fmt.Errorf("shop %s: open access token: %w", domain, err)
	}
	gw := shopify.NewGateway(shopify.NewClient(s.Domain, token, c.opts))
	return lifecycle.Shop{ID: s.ID, Domain: s.Domain, Gateway: gw, Pages: gw}, nil
}

// Register stores (or replaces) the offline access token of a shop.
func (c *ShopConnector) Register(ctx context.Context, domain, token, scopes string) (*model.Shop, error) {
	domain, err := utils.ShopDomain(domain)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("access token is required")
	}
	sealed, err := c.sealer.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	s := &model.Shop{Domain: domain, AccessTokenSealed: sealed, Scopes: scopes}
	if err := c.shops.Upsert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
