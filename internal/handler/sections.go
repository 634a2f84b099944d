// Package handler exposes the JSON API used by the embedded app.  Every
// handler except Health expects RequireShop to have stored the
// authenticated lifecycle.Shop in the context.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theme-section-installer/internal/facade"
	"github.com/iliyamo/theme-section-installer/internal/lifecycle"
	"github.com/iliyamo/theme-section-installer/internal/middleware"
	"github.com/iliyamo/theme-section-installer/internal/model"
)

// SectionService is the lifecycle surface the handlers call.
type SectionService interface {
	facade.Operations
	ListSections(ctx context.Context) ([]*model.Section, error)
	CreateLandingPage(ctx context.Context, shop lifecycle.Shop, title string, names []string) (lifecycle.PageResult, error)
}

// SectionHandler serves catalog and lifecycle routes.
type SectionHandler struct {
	Service     SectionService
	Concurrency int
	Log         logrus.FieldLogger
}

func NewSectionHandler(svc SectionService, concurrency int, log logrus.FieldLogger) *SectionHandler {
	if svc == nil {
		panic("nil service passed to NewSectionHandler")
	}
	return &SectionHandler{Service: svc, Concurrency: concurrency, Log: log}
}

// CatalogSection is a catalog entry as shown to the merchant; the Liquid
// body is not exposed.
type CatalogSection struct {
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type slugRequest struct {
	SectionSlug string `json:"sectionSlug"`
}

type batchRequest struct {
	SectionSlugs []string `json:"sectionSlugs"`
}

// batchResponse is a batch outcome plus the installation view refreshed
// after the batch, so the client does not need a second request.
type batchResponse struct {
	facade.BatchResult
	Installations []lifecycle.InstalledSection `json:"installations"`
}

func newBatchResponse(f *facade.Facade, res facade.BatchResult) batchResponse {
	list := f.Installations()
	if list == nil {
		list = []lifecycle.InstalledSection{}
	}
	return batchResponse{BatchResult: res, Installations: list}
}

type cleanupRequest struct {
	DryRun bool `json:"dryRun"`
}

type pageRequest struct {
	Title            string   `json:"title"`
	SelectedSections []string `json:"selectedSections"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// writeError maps lifecycle errors onto HTTP statuses.
func (h *SectionHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrUnknownSection):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrNoLiveTheme):
		return fail(c, http.StatusUnprocessableEntity, "no live theme found")
	case errors.Is(err, lifecycle.ErrAlreadyInstalled):
		return fail(c, http.StatusConflict, "section is already installed in the live theme")
	case errors.Is(err, lifecycle.ErrEmptySelection):
		return fail(c, http.StatusBadRequest, err.Error())
	case lifecycle.IsGatewayError(err):
		h.logger(c).WithError(err).Warn("shopify request failed")
		return fail(c, http.StatusBadGateway, err.Error())
	default:
		h.logger(c).WithError(err).Error("request failed")
		return fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *SectionHandler) logger(c echo.Context) logrus.FieldLogger {
	log := h.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithFields(logrus.Fields{
		"shop":   middleware.ShopDomain(c),
		"method": c.Request().Method,
		"path":   c.Path(),
	})
}

func unauthenticated(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "unauthenticated")
}

// bindSlug returns the requested slug, or a message for a 400 response.
func bindSlug(c echo.Context) (slug, problem string) {
	var req slugRequest
	if err := c.Bind(&req); err != nil {
		return "", "invalid body"
	}
	slug = strings.TrimSpace(req.SectionSlug)
	if slug == "" {
		return "", "sectionSlug is required"
	}
	return slug, ""
}

// ListSections handles GET /v1/sections.
func (h *SectionHandler) ListSections(c echo.Context) error {
	sections, err := h.Service.ListSections(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]CatalogSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, CatalogSection{Slug: s.Slug, Name: s.Name, Version: s.Version})
	}
	return c.JSON(http.StatusOK, echo.Map{"sections": out})
}

// ListInstallations handles GET /v1/installations.
func (h *SectionHandler) ListInstallations(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	list, err := h.Service.ListInstallations(c.Request().Context(), shop.ID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"installations": list})
}

// Install handles POST /v1/sections/install.
func (h *SectionHandler) Install(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	slug, problem := bindSlug(c)
	if problem != "" {
		return fail(c, http.StatusBadRequest, problem)
	}
	res, err := h.Service.Install(c.Request().Context(), shop, slug)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// InstallBatch handles POST /v1/sections/install-batch.  Partial failure
// is reported in the body with 200, along with the refreshed installations.
func (h *SectionHandler) InstallBatch(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if len(req.SectionSlugs) == 0 {
		return fail(c, http.StatusBadRequest, "sectionSlugs is required")
	}
	f := facade.New(h.Service, shop, facade.WithConcurrency(h.Concurrency), facade.WithLogger(h.logger(c)))
	res := f.InstallSections(c.Request().Context(), req.SectionSlugs)
	return c.JSON(http.StatusOK, newBatchResponse(f, res))
}

// Update handles POST /v1/sections/update.
func (h *SectionHandler) Update(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	slug, problem := bindSlug(c)
	if problem != "" {
		return fail(c, http.StatusBadRequest, problem)
	}
	res, err := h.Service.Update(c.Request().Context(), shop, slug)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateAll handles POST /v1/sections/update-all.
func (h *SectionHandler) UpdateAll(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	f := facade.New(h.Service, shop, facade.WithConcurrency(h.Concurrency), facade.WithLogger(h.logger(c)))
	res := f.UpdateAllSections(c.Request().Context())
	return c.JSON(http.StatusOK, newBatchResponse(f, res))
}

// Uninstall handles POST /v1/sections/uninstall.
func (h *SectionHandler) Uninstall(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	slug, problem := bindSlug(c)
	if problem != "" {
		return fail(c, http.StatusBadRequest, problem)
	}
	res, err := h.Service.Uninstall(c.Request().Context(), shop, slug)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cleanup handles POST /v1/sections/cleanup.  An empty body is a real
// cleanup, not a dry run.
func (h *SectionHandler) Cleanup(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	var req cleanupRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}
	}
	res, err := h.Service.CleanupAll(c.Request().Context(), shop, req.DryRun)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CreatePage handles POST /v1/pages.
func (h *SectionHandler) CreatePage(c echo.Context) error {
	shop, ok := middleware.CurrentShop(c)
	if !ok {
		return unauthenticated(c)
	}
	var req pageRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	res, err := h.Service.CreateLandingPage(c.Request().Context(), shop, req.Title, req.SelectedSections)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
