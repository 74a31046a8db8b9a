package handler

import (
	"encoding/xml"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pklatka/modernblog/internal/db"
)

const (
	rssItemLimit       = 20
	rssDescriptionSize = 300
	imageCaptionSize   = 500

	sitemapTimeLayout = "2006-01-02T15:04:05-07:00"
)

type sitemapURLSet struct {
	XMLName    xml.Name     `xml:"urlset"`
	Xmlns      string       `xml:"xmlns,attr"`
	XmlnsImage string       `xml:"xmlns:image,attr"`
	URLs       []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string        `xml:"loc"`
	LastMod    string        `xml:"lastmod,omitempty"`
	ChangeFreq string        `xml:"changefreq"`
	Priority   string        `xml:"priority"`
	Image      *sitemapImage `xml:"image:image,omitempty"`
}

type sitemapImage struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title"`
	Caption string `xml:"image:caption,omitempty"`
}

type rssFeed struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	XmlnsAtom    string     `xml:"xmlns:atom,attr"`
	XmlnsContent string     `xml:"xmlns:content,attr"`
	XmlnsDC      string     `xml:"xmlns:dc,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Description   string      `xml:"description"`
	Link          string      `xml:"link"`
	Language      string      `xml:"language"`
	Generator     string      `xml:"generator"`
	AtomLink      rssAtomLink `xml:"atom:link"`
	LastBuildDate string      `xml:"lastBuildDate,omitempty"`
	PubDate       string      `xml:"pubDate,omitempty"`
	Items         []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	Description string        `xml:"description"`
	Content     rssCDATA      `xml:"content:encoded"`
	PubDate     string        `xml:"pubDate"`
	Creator     string        `xml:"dc:creator"`
	Categories  []string      `xml:"category"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssCDATA struct {
	Text string `xml:",cdata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// Sitemap 输出首页、文章列表、公开文章与有公开文章的标签页。
func (a *API) Sitemap(c *gin.Context) {
	posts, err := a.posts.Published(0)
	if err != nil {
		respondServiceError(c, err, "Failed to build sitemap")
		return
	}
	tags, err := a.tags.List(false)
	if err != nil {
		respondServiceError(c, err, "Failed to build sitemap")
		return
	}

	siteURL := a.baseURL(c)
	set := sitemapURLSet{
		Xmlns:      "http://www.sitemaps.org/schemas/sitemap/0.9",
		XmlnsImage: "http://www.google.com/schemas/sitemap-image/1.1",
		URLs: []sitemapURL{
			{Loc: siteURL, ChangeFreq: "daily", Priority: "1.0"},
			{Loc: siteURL + "/posts", ChangeFreq: "daily", Priority: "0.9"},
		},
	}

	for _, post := range posts {
		entry := sitemapURL{
			Loc:        siteURL + "/post/" + post.Slug,
			LastMod:    formatSitemapTime(lastModified(post)),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		}
		if post.IsFeatured {
			entry.Priority = "0.8"
		}
		if post.CoverImage != "" {
			entry.Image = &sitemapImage{
				Loc:     absoluteURL(siteURL, post.CoverImage),
				Title:   post.Title,
				Caption: truncateRunes(post.Excerpt, imageCaptionSize, ""),
			}
		}
		set.URLs = append(set.URLs, entry)
	}

	for _, tag := range tags {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        siteURL + "/tag/" + tag.Slug,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	c.Header("Cache-Control", "public, max-age=3600")
	renderXML(c, "application/xml; charset=utf-8", set)
}

// RobotsTxt 允许抓取公开页面，屏蔽后台、API 与搜索结果。
func (a *API) RobotsTxt(c *gin.Context) {
	siteURL := a.baseURL(c)

	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, allowed := range []string{"/", "/post/", "/posts", "/tag/"} {
		b.WriteString("Allow: " + allowed + "\n")
	}
	b.WriteString("\n")
	for _, blocked := range []string{"/admin", "/api/", "/search"} {
		b.WriteString("Disallow: " + blocked + "\n")
	}
	b.WriteString("\nSitemap: " + siteURL + "/sitemap.xml\n")

	c.Header("Cache-Control", "public, max-age=86400")
	c.String(http.StatusOK, b.String())
}

// RSSFeed 输出最近 20 篇公开文章的 RSS 2.0 订阅源。
func (a *API) RSSFeed(c *gin.Context) {
	posts, err := a.posts.Published(rssItemLimit)
	if err != nil {
		respondServiceError(c, err, "Failed to build feed")
		return
	}

	siteURL := a.baseURL(c)
	blog := a.cfg.Blog
	channel := rssChannel{
		Title:       blog.Title,
		Description: blog.Description,
		Link:        siteURL,
		Language:    blog.Language,
		Generator:   "ModernBlog",
		AtomLink: rssAtomLink{
			Href: siteURL + "/rss.xml",
			Rel:  "self",
			Type: "application/rss+xml",
		},
	}
	if len(posts) > 0 {
		newest := formatRSSTime(publishedOrCreated(posts[0]))
		channel.LastBuildDate = newest
		channel.PubDate = newest
	}

	for _, post := range posts {
		link := siteURL + "/post/" + post.Slug
		description := post.Excerpt
		if description == "" {
			description = truncateRunes(post.Content, rssDescriptionSize, "...")
		}

		item := rssItem{
			Title:       post.Title,
			Link:        link,
			GUID:        link,
			Description: description,
			Content:     rssCDATA{Text: post.Content},
			PubDate:     formatRSSTime(publishedOrCreated(post)),
			Creator:     blog.AuthorName,
		}
		for _, tag := range post.Tags {
			item.Categories = append(item.Categories, tag.Name)
		}
		if post.CoverImage != "" {
			item.Enclosure = &rssEnclosure{
				URL:    absoluteURL(siteURL, post.CoverImage),
				Type:   imageMimeType(post.CoverImage),
				Length: "0",
			}
		}
		channel.Items = append(channel.Items, item)
	}

	c.Header("Cache-Control", "public, max-age=1800")
	renderXML(c, "application/rss+xml; charset=utf-8", rssFeed{
		Version:      "2.0",
		XmlnsAtom:    "http://www.w3.org/2005/Atom",
		XmlnsContent: "http://purl.org/rss/1.0/modules/content/",
		XmlnsDC:      "http://purl.org/dc/elements/1.1/",
		Channel:      channel,
	})
}

// SEOMetadata 返回站点地址、博客信息与订阅源地址。
func (a *API) SEOMetadata(c *gin.Context) {
	stats, err := a.posts.Stats()
	if err != nil {
		respondServiceError(c, err, "Failed to load SEO metadata")
		return
	}

	siteURL := a.baseURL(c)
	blog := a.cfg.Blog
	c.JSON(http.StatusOK, gin.H{
		"site_url":    siteURL,
		"title":       blog.Title,
		"description": blog.Description,
		"author":      blog.AuthorName,
		"language":    blog.Language,
		"total_posts": stats.TotalPosts,
		"feeds": gin.H{
			"rss":     siteURL + "/rss.xml",
			"sitemap": siteURL + "/sitemap.xml",
		},
	})
}

func renderXML(c *gin.Context, contentType string, doc any) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		respondServiceError(c, fmt.Errorf("marshal xml: %w", err), "Failed to render document")
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), body...))
}

func lastModified(post db.Post) time.Time {
	if !post.UpdatedAt.IsZero() {
		return post.UpdatedAt
	}
	if post.PublishedAt != nil {
		return *post.PublishedAt
	}
	return time.Time{}
}

func publishedOrCreated(post db.Post) time.Time {
	if post.PublishedAt != nil {
		return *post.PublishedAt
	}
	return post.CreatedAt
}

func formatSitemapTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sitemapTimeLayout)
}

func formatRSSTime(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}

func absoluteURL(siteURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return siteURL + ref
}

func imageMimeType(ref string) string {
	if ext := path.Ext(strings.SplitN(ref, "?", 2)[0]); ext != "" {
		if typ := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(typ, "image/") {
			return typ
		}
	}
	return "image/jpeg"
}

func truncateRunes(s string, limit int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + suffix
}
