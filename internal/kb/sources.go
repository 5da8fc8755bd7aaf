package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	overpass "github.com/serjvanilla/go-overpass"
)

const userAgent = "ParkSight/1.0 (parking analytics; contact@parksight.app)"

// Neighborhood names one area of interest: a Wikipedia page for
// background text and, when coordinates are set, a center point for
// amenity lookups.
type Neighborhood struct {
	Name     string
	WikiPage string

	// Lat and Lon enable the amenity lookup; both zero skips it.
	Lat float64
	Lon float64
}

// DefaultNeighborhoods covers the Atlanta study area.
var DefaultNeighborhoods = []Neighborhood{
	{Name: "Midtown", WikiPage: "Midtown_Atlanta", Lat: 33.7838, Lon: -84.3830},
	{Name: "Buckhead", WikiPage: "Buckhead", Lat: 33.8490, Lon: -84.3780},
	{Name: "Old Fourth Ward", WikiPage: "Old_Fourth_Ward", Lat: 33.7620, Lon: -84.3680},
	{Name: "Inman Park", WikiPage: "Inman_Park"},
	{Name: "Virginia-Highland", WikiPage: "Virginia-Highland"},
	{Name: "Little Five Points", WikiPage: "Little_Five_Points"},
}

// WikipediaClient fetches plain-text article extracts through the
// MediaWiki query API.
type WikipediaClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewWikipediaClient returns a client against en.wikipedia.org.
func NewWikipediaClient() *WikipediaClient {
	return &WikipediaClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://en.wikipedia.org/w/api.php",
	}
}

// NewWikipediaClientWith overrides the endpoint and HTTP client, for
// tests against a local server.
func NewWikipediaClientWith(endpoint string, httpClient *http.Client) *WikipediaClient {
	return &WikipediaClient{httpClient: httpClient, endpoint: endpoint}
}

// Extract returns the article body as whitespace-normalized plain
// text, or an empty string when the page has no extract.
func (c *WikipediaClient) Extract(ctx context.Context, page string) (string, error) {
	q := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"format":      {"json"},
		"redirects":   {"1"},
		"titles":      {page},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build wikipedia request for %s: %w", page, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch wikipedia page %s: %w", page, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia page %s: unexpected status %s", page, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read wikipedia response for %s: %w", page, err)
	}
	var parsed struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse wikipedia response for %s: %w", page, err)
	}
	for _, p := range parsed.Query.Pages {
		if p.Extract != "" {
			return strings.Join(strings.Fields(p.Extract), " "), nil
		}
	}
	return "", nil
}

// AmenityFetcher summarizes OpenStreetMap amenities around a point
// through the Overpass API.
type AmenityFetcher struct {
	client overpass.Client
}

// NewAmenityFetcher builds a fetcher against the given Overpass
// endpoint, or the public instance when endpoint is empty.
func NewAmenityFetcher(endpoint string) *AmenityFetcher {
	if endpoint == "" {
		return &AmenityFetcher{client: overpass.New()}
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &AmenityFetcher{client: overpass.NewWithSettings(endpoint, 2, httpClient)}
}

// Summary returns one sentence listing the ten most common amenity
// types within a kilometer of the point, or an empty string when
// nothing is tagged there.
func (f *AmenityFetcher) Summary(name string, lat, lon float64) (string, error) {
	query := fmt.Sprintf(`
		[out:json];
		(
			node["amenity"](around:1000,%f,%f);
			way["amenity"](around:1000,%f,%f);
			relation["amenity"](around:1000,%f,%f);
		);
		out center;
	`, lat, lon, lat, lon, lat, lon)

	result, err := f.client.Query(query)
	if err != nil {
		return "", fmt.Errorf("failed to fetch amenities for %s: %w", name, err)
	}

	counts := map[string]int{}
	for _, n := range result.Nodes {
		countAmenity(counts, n.Tags)
	}
	for _, w := range result.Ways {
		countAmenity(counts, w.Tags)
	}
	for _, r := range result.Relations {
		countAmenity(counts, r.Tags)
	}
	if len(counts) == 0 {
		return "", nil
	}

	type entry struct {
		amenity string
		count   int
	}
	entries := make([]entry, 0, len(counts))
	for a, c := range counts {
		entries = append(entries, entry{amenity: a, count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].amenity < entries[j].amenity
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d %s", e.count, e.amenity)
	}
	return fmt.Sprintf("%s amenities include: %s.", name, strings.Join(parts, ", ")), nil
}

func countAmenity(counts map[string]int, tags map[string]string) {
	if a := tags["amenity"]; a != "" {
		counts[a]++
	}
}
