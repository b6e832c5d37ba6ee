package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marcaromas/marcaromas-backend/api/responses"
	"github.com/marcaromas/marcaromas-backend/api/validators"
	"github.com/marcaromas/marcaromas-backend/internal/catalog"
	pkgerrors "github.com/marcaromas/marcaromas-backend/pkg/errors"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/pagination"
)

// CatalogListProducts serves the public candle catalog.
func CatalogListProducts(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := catalog.ProductFilters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if scent := strings.TrimSpace(r.URL.Query().Get("scent")); scent != "" {
			filters.Scent = &scent
		}
		if featured := strings.TrimSpace(r.URL.Query().Get("featured")); featured != "" {
			value, err := strconv.ParseBool(featured)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "featured must be a boolean"))
				return
			}
			filters.FeaturedOnly = value
		}

		list, err := repo.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CatalogProductBySlug serves one product detail page.
func CatalogProductBySlug(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := repo.FindProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CatalogListPlans serves the subscription box plans.
func CatalogListPlans(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		plans, err := repo.ListPlans(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plans)
	}
}
