package seo

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

// RSS builds an RSS 2.0 feed with one item per post. Dates are copied verbatim
// from front matter.
func RSS(posts []content.Post, cfg *config.SiteConfig) (string, error) {
	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Title,
			Link:        cfg.BaseURL,
			Description: cfg.Description,
			Items:       make([]rssItem, 0, len(posts)),
		},
	}
	for _, p := range posts {
		link := cfg.PostURL(p.Meta.Slug)
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:   p.Meta.Title,
			Link:    link,
			GUID:    link,
			PubDate: p.Meta.Date,
		})
	}
	return marshalXML(feed)
}

func marshalXML(v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
