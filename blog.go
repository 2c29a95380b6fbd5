package agrosite

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// handleListBlog lists active posts newest first. limit truncates the
// category-filtered list.
func (a *App) handleListBlog(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fieldError("limit", "gt=0")
		}
		limit = n
	}
	posts, err := a.Cache.Posts(c.Request().Context(), c.QueryParam("category"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleGetBlogPost(c echo.Context) error {
	p, err := a.Cache.Post(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleCreateBlogPost(c echo.Context) error {
	var req blogPostRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	p := req.toBlogPost(0)
	if err := a.Services.Blog.Create(c.Request().Context(), p); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleUpdateBlogPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req blogPostRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	p := req.toBlogPost(id)
	if err := a.Services.Blog.Update(c.Request().Context(), p); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleDeleteBlogPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Services.Blog.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminListBlog(c echo.Context) error {
	posts, err := a.Services.Blog.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleAdminGetBlogPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := a.Services.Blog.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
