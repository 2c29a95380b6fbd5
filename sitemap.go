package agrosite

import (
	"encoding/xml"

	"github.com/labstack/echo/v4"

	"github.com/agrosite/agrosite/store"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	products, err := a.Cache.Products(ctx, "")
	if err != nil {
		return err
	}
	posts, err := a.Cache.Posts(ctx, "", 0)
	if err != nil {
		return err
	}
	return writeXML(c, a.buildSitemap(products, posts))
}

func (a *App) buildSitemap(products []store.Product, posts []store.BlogPost) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "products")},
		{Loc: BuildURL(base, "blog")},
	}
	for _, p := range products {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "products", p.Slug),
			LastMod: p.UpdatedAt.Format("2006-01-02"),
		})
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "blog", p.Slug),
			LastMod: p.UpdatedAt.Format("2006-01-02"),
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}
