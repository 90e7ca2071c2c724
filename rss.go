package folio

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/markdown"
)

const feedExcerptLength = 300

type rssXML struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	XMLNSAtom    string     `xml:"xmlns:atom,attr"`
	XMLNSContent string     `xml:"xmlns:content,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description"`
	Content     cdata   `xml:"content:encoded"`
	PubDate     string  `xml:"pubDate"`
	Category    string  `xml:"category,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Store.ListAllPosts(ctx, false)
	if err != nil {
		return err
	}

	base := a.Config.URL
	title := settings.BlogTitle
	if title == "" {
		title = a.Config.Name
	}
	description := settings.AuthorBio
	if description == "" {
		description = a.Config.Description
	}

	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := PostURL(base, p.ID)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{Value: link, IsPermaLink: true},
			Description: markdown.PlainText(p.Content, feedExcerptLength),
			Content:     cdata{Value: markdown.HTML(p.Content)},
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			Category:    p.Category,
		})
	}

	feed := rssXML{
		Version:      "2.0",
		XMLNSAtom:    "http://www.w3.org/2005/Atom",
		XMLNSContent: "http://purl.org/rss/1.0/modules/content/",
		Channel: rssChannel{
			Title:       title,
			Link:        BuildURL(base),
			Description: description,
			Language:    settings.Language,
			AtomLink: atomLink{
				Href: BuildURL(base, "feed.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	if len(posts) > 0 {
		feed.Channel.LastBuildDate = posts[0].UpdatedAt.UTC().Format(time.RFC1123Z)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(feed)
}
