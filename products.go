package agrosite

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleListProducts(c echo.Context) error {
	products, err := a.Cache.Products(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleListProductsByCategory(c echo.Context) error {
	products, err := a.Cache.Products(c.Request().Context(), c.Param("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleGetProduct(c echo.Context) error {
	p, err := a.Cache.Product(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleCreateProduct(c echo.Context) error {
	var req productRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	p := req.toProduct(0)
	if err := a.Services.Products.Create(c.Request().Context(), p); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleUpdateProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	p := req.toProduct(id)
	if err := a.Services.Products.Update(c.Request().Context(), p); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, p)
}

// handleDeleteProduct soft-deletes: the product disappears from public reads
// but stays available to the back-office and can be re-enabled with PUT.
func (a *App) handleDeleteProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Services.Products.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminListProducts(c echo.Context) error {
	products, err := a.Services.Products.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleAdminGetProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := a.Services.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
