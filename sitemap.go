package folio

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
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
	posts, err := a.Store.ListAllPosts(c.Request().Context(), false)
	if err != nil {
		return err
	}

	base := a.Config.URL
	urls := make([]sitemapURL, 0, len(posts)+1)
	home := sitemapURL{Loc: BuildURL(base)}
	urls = append(urls, home)
	for _, p := range posts {
		if m := p.UpdatedAt.UTC().Format("2006-01-02"); m > urls[0].LastMod {
			urls[0].LastMod = m
		}
		urls = append(urls, sitemapURL{
			Loc:     PostURL(base, p.ID),
			LastMod: p.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}

	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
