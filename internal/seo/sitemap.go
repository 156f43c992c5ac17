// Package seo generates the machine-readable site payloads: sitemap, RSS
// feed and search index. All functions are pure.
package seo

import (
	"encoding/xml"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// Sitemap lists the site root followed by one URL per post, in post order.
func Sitemap(posts []content.Post, cfg *config.SiteConfig) (string, error) {
	set := urlSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(posts)+1)}
	set.URLs = append(set.URLs, sitemapURL{Loc: cfg.RootURL()})
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{Loc: cfg.PostURL(p.Meta.Slug)})
	}
	return marshalXML(set)
}
