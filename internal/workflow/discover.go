package workflow

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"brandscope-backend/internal/shared/telemetry"
)

const maxSitemapBytes = 5 << 20

// Discoverer locates candidate pages for a site: sitemap first, then a
// homepage link scan as fallback. A missing sitemap is a normal
// outcome, never an error.
type Discoverer struct {
	Client  *http.Client
	MaxURLs int
}

func NewDiscoverer(timeout time.Duration, maxURLs int) *Discoverer {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if maxURLs <= 0 {
		maxURLs = 50
	}
	return &Discoverer{
		Client:  &http.Client{Timeout: timeout},
		MaxURLs: maxURLs,
	}
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Discover returns up to MaxURLs page URLs for the site. FoundSitemap
// reports whether a usable sitemap was located.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) (DiscoverResult, error) {
	base, err := url.Parse(siteURL)
	if err != nil || base.Host == "" {
		return DiscoverResult{}, fmt.Errorf("invalid site url %q", siteURL)
	}

	urls, found := d.fromSitemap(ctx, base)
	if !found || len(urls) == 0 {
		fallback, err := d.fromHomepage(ctx, base)
		if err != nil {
			if found {
				// sitemap existed but was empty; report it as found
				// with whatever it gave us
				return DiscoverResult{URLs: urls, FoundSitemap: true}, nil
			}
			return DiscoverResult{}, err
		}
		telemetry.Info("workflow.discover.fallback", map[string]any{
			"site": base.Host,
			"urls": len(fallback),
		})
		return DiscoverResult{URLs: fallback, FoundSitemap: found}, nil
	}

	telemetry.Info("workflow.discover.sitemap", map[string]any{
		"site": base.Host,
		"urls": len(urls),
	})
	return DiscoverResult{URLs: urls, FoundSitemap: true}, nil
}

// fromSitemap fetches <site>/sitemap.xml. A sitemap index is followed
// one level deep, child sitemaps in listed order, until the URL cap.
func (d *Discoverer) fromSitemap(ctx context.Context, base *url.URL) ([]string, bool) {
	sitemapURL := base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	body, err := d.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, false
	}

	if urls, ok := parseURLSet(body, base, d.MaxURLs); ok {
		return urls, true
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		return nil, false
	}
	var out []string
	seen := map[string]bool{}
	for _, child := range index.Sitemaps {
		if len(out) >= d.MaxURLs {
			break
		}
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		childBody, err := d.fetch(ctx, loc)
		if err != nil {
			continue
		}
		childURLs, ok := parseURLSet(childBody, base, d.MaxURLs-len(out))
		if !ok {
			continue
		}
		for _, u := range childURLs {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out, true
}

func parseURLSet(body []byte, base *url.URL, max int) ([]string, bool) {
	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, false
	}
	if set.XMLName.Local != "urlset" {
		return nil, false
	}
	var out []string
	seen := map[string]bool{}
	for _, entry := range set.URLs {
		if len(out) >= max {
			break
		}
		loc := strings.TrimSpace(entry.Loc)
		u, err := url.Parse(loc)
		if err != nil || !sameHost(u, base) {
			continue
		}
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	return out, true
}

// fromHomepage extracts same-host links from the homepage HTML.
func (d *Discoverer) fromHomepage(ctx context.Context, base *url.URL) ([]string, error) {
	body, err := d.fetch(ctx, base.String())
	if err != nil {
		return nil, fmt.Errorf("homepage fetch failed: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("homepage parse failed: %w", err)
	}

	out := []string{base.String()}
	seen := map[string]bool{base.String(): true}
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if !sameHost(abs, base) {
			return true
		}
		full := abs.String()
		if !seen[full] {
			seen[full] = true
			out = append(out, full)
		}
		return len(out) < d.MaxURLs
	})
	return out, nil
}

func (d *Discoverer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "brandscope-bot/1.0")
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
}

func sameHost(u, base *url.URL) bool {
	if u.Host == "" {
		return false
	}
	strip := func(h string) string { return strings.TrimPrefix(strings.ToLower(h), "www.") }
	return strip(u.Host) == strip(base.Host)
}
