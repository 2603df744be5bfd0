package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elitcards/storefront/internal/catalog"
	"github.com/elitcards/storefront/internal/logging"
)

type CatalogHTTP struct {
	Svc *catalog.Service
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	products, source := h.Svc.Products(ctx)

	l.Info("get_products_success", "count", len(products), "source", source)
	return c.JSON(http.StatusOK, map[string]any{
		"data": products,
		"meta": map[string]any{
			"total":  len(products),
			"source": source,
		},
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, "product id required")
	}

	product, err := h.Svc.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("get_product_not_found", "status", 404, "id", id)
			return c.JSON(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, product)
}
