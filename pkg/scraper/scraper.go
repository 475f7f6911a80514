// Package scraper reads the site pages: the movie page for its video id and
// title, listing pages for movie links and the search page.
//
// Page markup contract (v1): the movie page embeds a packed player script
// containing "m3u8|<id parts in reverse>|com|surrit|https|video"; the page title
// is the <title> element; listing pages link movies with <a href=... alt=...>
// and the next page with <a href=... rel="next">.
package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

var uuidRegex = regexp.MustCompile(`m3u8\|([a-f0-9\|]+)\|com\|surrit\|https\|video`)

// Client fetches pages
type Client interface {
	GetText(ctx context.Context, url string) (string, error)
	SearchURL(key string) string
}

// Scraper extracts movie data and links from site pages
type Scraper struct {
	client Client
}

// New creates a scraper
func New(client Client) *Scraper {
	return &Scraper{client: client}
}

// ResolvePage fetches a movie page and extracts its video id and title
func (s *Scraper) ResolvePage(ctx context.Context, pageURL string) (*models.MoviePage, error) {
	text, err := s.client.GetText(ctx, pageURL)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrNetwork, "Failed to fetch movie page", "Check your network or proxy settings", true, err)
	}

	id, ok := ExtractUUID(text)
	if !ok {
		return nil, models.NewDownloadError(models.ErrNotFound, "Failed to match uuid in "+pageURL, "The page layout may have changed or the movie is unavailable", false, nil)
	}
	logger.GetLogger().WithField("uuid", id).Info("Matching uuid successfully")

	return &models.MoviePage{UUID: id, Title: ExtractTitle(text)}, nil
}

// ExtractUUID unpacks the video id from the player script
func ExtractUUID(text string) (string, bool) {
	match := uuidRegex.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	parts := strings.Split(match[1], "|")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	id := strings.Join(parts, "-")

	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String(), true
	}
	return id, true
}

// ExtractTitle returns the text of the first <title> element, or ""
func ExtractTitle(text string) string {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return ""
	}

	var title string
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			return false
		}
		return true
	})
	return title
}

// CollectPlaylist gathers movie links from a listing page and the pages it
// links as next. A limit <= 0 collects everything.
func (s *Scraper) CollectPlaylist(ctx context.Context, listURL string, limit int) ([]string, error) {
	log := logger.GetLogger()
	log.WithField("url", listURL).Info("Getting the URLs of all movies")

	var urls []string
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	for page := listURL; page != "" && !visited[page]; {
		if err := ctx.Err(); err != nil {
			return urls, err
		}
		visited[page] = true

		text, err := s.client.GetText(ctx, page)
		if err != nil {
			if len(urls) > 0 {
				log.WithField("url", page).WithError(err).Warn("Stopped paging, keeping collected URLs")
				break
			}
			return nil, models.NewDownloadError(models.ErrNetwork, "Failed to fetch playlist page", "Check the playlist URL and your network", true, err)
		}

		links, next := parseListing(text, page)
		for _, link := range links {
			if seen[link] {
				continue
			}
			seen[link] = true
			urls = append(urls, link)
			log.WithFields(logrus.Fields{"num": len(urls), "url": link}).Info("Movie url")
			if limit > 0 && len(urls) >= limit {
				return urls, nil
			}
		}
		page = next
	}

	log.WithField("count", len(urls)).Info("All the video URLs have been successfully obtained")
	return urls, nil
}

// Search returns the movie page whose link carries alt equal to key
func (s *Scraper) Search(ctx context.Context, key string) (string, error) {
	searchURL := s.client.SearchURL(key)
	text, err := s.client.GetText(ctx, searchURL)
	if err != nil {
		return "", models.NewDownloadError(models.ErrNetwork, "Failed to fetch search page", "Check your network or proxy settings", true, err)
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return "", models.NewDownloadError(models.ErrParse, "Failed to parse search page", "", false, err)
	}

	var found string
	walk(doc, func(n *html.Node) bool {
		if isAnchor(n) && attr(n, "alt") == key {
			if href := attr(n, "href"); href != "" {
				found = resolve(searchURL, href)
				return false
			}
		}
		return true
	})

	if found == "" {
		return "", models.NewDownloadError(models.ErrNotFound, "No movie found for "+key, "Check the serial number", false, nil)
	}
	logger.GetLogger().WithFields(logrus.Fields{"key": key, "url": found}).Info("Search found movie")
	return found, nil
}

// parseListing returns the movie links and the next page of a listing page
func parseListing(text, pageURL string) ([]string, string) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, ""
	}

	var links []string
	var next string
	walk(doc, func(n *html.Node) bool {
		if !isAnchor(n) {
			return true
		}
		href := attr(n, "href")
		if href == "" {
			return true
		}
		if next == "" && attr(n, "rel") == "next" {
			next = resolve(pageURL, href)
		} else if hasAttr(n, "alt") {
			links = append(links, resolve(pageURL, href))
		}
		return true
	})
	return links, next
}

// walk visits n and its descendants depth first until fn returns false
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func isAnchor(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "a"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return strings.TrimSuffix(b.ResolveReference(ref).String(), "/")
}
