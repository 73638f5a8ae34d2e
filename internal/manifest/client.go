package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mchttp "github.com/handiism/mc-downloader/internal/http"
	"github.com/handiism/mc-downloader/internal/logging"
	"github.com/handiism/mc-downloader/internal/manifest/dto"
	"github.com/handiism/mc-downloader/internal/model"
)

// ListingPath is the release listing endpoint, relative to the base URL.
const ListingPath = "/mc/game/version_manifest.json"

// ErrReleaseNotFound is returned when the requested id is absent from the listing.
var ErrReleaseNotFound = errors.New("release not found in listing")

// Latest names the newest release and snapshot ids from the last listing.
type Latest struct {
	Release  string
	Snapshot string
}

// Client fetches the release listing and per-release descriptors.
//
// Client keeps the most recent listing in memory. Every successful fetch
// replaces it wholesale; nothing else invalidates it.
//
// Example usage:
//
//	client := manifest.NewClient(manifest.WithBaseURL(settings.MirrorBaseURL))
//
//	for _, r := range client.ListReleases(ctx) {
//	    fmt.Println(r.ID)
//	}
//
//	desc := client.GetReleaseDescriptor(ctx, "1.20.1")
//	if desc == nil {
//	    // unknown release or the mirror is unreachable; the cause was logged
//	}
type Client struct {
	baseURL string
	http    *mchttp.Client
	log     *slog.Logger

	mu       sync.RWMutex
	releases []model.ReleaseSummary
	latest   Latest
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the mirror host, e.g. "https://bmclapi2.bangbang93.com".
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets the transport client.
func WithHTTPClient(hc *mchttp.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger that receives outcome events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Client. Without options it talks to the default
// mirror with default timeouts and discards logs.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: "https://bmclapi2.bangbang93.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = mchttp.NewClient(mchttp.DefaultOptions())
	}
	c.log = logging.OrNop(c.log)
	return c
}

// BaseURL returns the mirror host requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListReleases returns every known release.
//
// Failures are logged and reported as an empty slice: callers treat that
// as "no data available".
func (c *Client) ListReleases(ctx context.Context) []model.ReleaseSummary {
	releases, err := c.FetchReleases(ctx)
	if err != nil {
		c.log.Error("list releases failed", "url", c.listingURL(), "error", err)
		return []model.ReleaseSummary{}
	}
	c.log.Info("listed releases", "count", len(releases))
	return releases
}

// FetchReleases is ListReleases with the underlying error returned instead
// of logged.
func (c *Client) FetchReleases(ctx context.Context) ([]model.ReleaseSummary, error) {
	var listing dto.JSONManifest
	if err := c.http.GetJSON(ctx, c.listingURL(), &listing); err != nil {
		return nil, err
	}

	releases := listing.ToSummaries()

	c.mu.Lock()
	c.releases = releases
	c.latest = Latest{Release: listing.Latest.Release, Snapshot: listing.Latest.Snapshot}
	c.mu.Unlock()

	return copySummaries(releases), nil
}

// GetReleaseDescriptor returns the descriptor of release id, or nil when the
// id is not listed or a request fails. The cause is logged.
//
// Every call re-fetches the listing before fetching the descriptor.
func (c *Client) GetReleaseDescriptor(ctx context.Context, id string) *model.ReleaseDescriptor {
	desc, err := c.LookupDescriptor(ctx, id)
	switch {
	case errors.Is(err, ErrReleaseNotFound):
		c.log.Warn("release not found", "release", id)
		return nil
	case err != nil:
		c.log.Error("get release descriptor failed", "release", id, "error", err)
		return nil
	}
	c.log.Info("fetched release descriptor", "release", id, "libraries", len(desc.Libraries))
	return desc
}

// LookupDescriptor is GetReleaseDescriptor with the underlying error
// returned instead of logged. An unknown id yields ErrReleaseNotFound.
func (c *Client) LookupDescriptor(ctx context.Context, id string) (*model.ReleaseDescriptor, error) {
	releases, err := c.FetchReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	summary, ok := findRelease(releases, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, id)
	}

	var body dto.JSONVersion
	if err := c.http.GetJSON(ctx, summary.URL, &body); err != nil {
		return nil, fmt.Errorf("fetch descriptor %s: %w", id, err)
	}

	return body.ToDescriptor(summary.ID, summary.URL), nil
}

// Cached returns the listing from the last successful fetch.
func (c *Client) Cached() []model.ReleaseSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySummaries(c.releases)
}

// Latest returns the latest release and snapshot from the last successful fetch.
func (c *Client) Latest() Latest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// FilterByType keeps the summaries whose Type is one of types. With no
// types, all summaries are returned.
func FilterByType(summaries []model.ReleaseSummary, types ...string) []model.ReleaseSummary {
	if len(types) == 0 {
		return summaries
	}
	var out []model.ReleaseSummary
	for _, s := range summaries {
		for _, t := range types {
			if s.Type == t {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func (c *Client) listingURL() string {
	return c.baseURL + ListingPath
}

func findRelease(releases []model.ReleaseSummary, id string) (model.ReleaseSummary, bool) {
	for _, r := range releases {
		if r.ID == id {
			return r, true
		}
	}
	return model.ReleaseSummary{}, false
}

func copySummaries(in []model.ReleaseSummary) []model.ReleaseSummary {
	out := make([]model.ReleaseSummary, len(in))
	copy(out, in)
	return out
}
