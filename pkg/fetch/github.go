// Package fetch retrieves the release catalog and disconnected helper documents from
// their GitHub repositories.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v57/github"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBuildConfigRepo   = "red-hat-data-services/RHOAI-Build-Config"
	DefaultHelperRepo        = "red-hat-data-services/rhoai-disconnected-install-helper"
	DefaultRequestsPerSecond = 5

	// DefaultPlatformRelease is used when the catalog tree lists no platform releases.
	DefaultPlatformRelease = "4.20"

	// Below this many remaining API calls the client waits for the quota window to reset.
	rateLimitFloor = 10
)

var (
	helperFileRegex  = regexp.MustCompile(`^rhoai-(\d+\.\d+)\.md$`)
	platformDirRegex = regexp.MustCompile(`^v(\d+\.\d+)$`)
)

// Client reads files through the GitHub contents API.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter

	token           string
	baseURL         string
	httpClient      *http.Client
	buildConfigRepo string
	helperRepo      string

	lastRate *github.Rate
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithToken authenticates requests, raising the API quota.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit paces requests client-side.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithRepositories overrides the owner/name of the build config and helper repositories.
func WithRepositories(buildConfig, helper string) Option {
	return func(c *Client) {
		if buildConfig != "" {
			c.buildConfigRepo = buildConfig
		}
		if helper != "" {
			c.helperRepo = helper
		}
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		limiter:         rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		buildConfigRepo: DefaultBuildConfigRepo,
		helperRepo:      DefaultHelperRepo,
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := c.httpClient
	if c.token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token}))
	}
	c.gh = github.NewClient(httpClient)

	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid GitHub API URL %q", c.baseURL)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.gh.BaseURL = u
	}

	return c, nil
}

// FetchCatalogDocument returns the OLM catalog of a release for a platform release,
// falling back to the pre-compiled catalog of the platform release.
func (c *Client) FetchCatalogDocument(ctx context.Context, release, platformRelease string) ([]byte, error) {
	candidates := []string{
		fmt.Sprintf("catalog/rhoai-%s/v%s/rhods-operator/catalog.yaml", release, platformRelease),
		fmt.Sprintf("pcc/catalog-v%s.yaml", platformRelease),
	}
	for _, path := range candidates {
		content, err := c.getFile(ctx, c.buildConfigRepo, path)
		if err == nil {
			return []byte(content), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Debugf("catalog not found at %s", path)
	}
	return nil, fmt.Errorf("%w: no OLM catalog for RHOAI %s / OCP %s", ErrNotFound, release, platformRelease)
}

// FetchHelperDocument returns the disconnected install helper document of a release,
// falling back to the older rhods- file naming.
func (c *Client) FetchHelperDocument(ctx context.Context, release string) (string, error) {
	content, err := c.getFile(ctx, c.helperRepo, fmt.Sprintf("rhoai-%s.md", release))
	if err == nil || !errors.Is(err, ErrNotFound) {
		return content, err
	}
	return c.getFile(ctx, c.helperRepo, fmt.Sprintf("rhods-%s.md", release))
}

// LatestVersions finds the newest release that has a helper document and the newest
// platform release its catalog is built for.
func (c *Client) LatestVersions(ctx context.Context) (release, platformRelease string, err error) {
	files, err := c.listDir(ctx, c.helperRepo, "")
	if err != nil {
		return "", "", err
	}
	var releases []string
	for _, f := range files {
		if f.GetType() != "file" {
			continue
		}
		if m := helperFileRegex.FindStringSubmatch(f.GetName()); m != nil {
			releases = append(releases, m[1])
		}
	}
	release = highest(releases)
	if release == "" {
		return "", "", fmt.Errorf("%w: no RHOAI releases in %s", ErrNotFound, c.helperRepo)
	}

	dirs, err := c.listDir(ctx, c.buildConfigRepo, "catalog/rhoai-"+release)
	if err != nil {
		return "", "", err
	}
	var platforms []string
	for _, d := range dirs {
		if d.GetType() != "dir" {
			continue
		}
		if m := platformDirRegex.FindStringSubmatch(d.GetName()); m != nil {
			platforms = append(platforms, m[1])
		}
	}
	platformRelease = highest(platforms)
	if platformRelease == "" {
		log.Warnf("no platform releases listed for RHOAI %s, assuming OCP %s", release, DefaultPlatformRelease)
		platformRelease = DefaultPlatformRelease
	}
	return release, platformRelease, nil
}

func (c *Client) getFile(ctx context.Context, repo, path string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	if err := c.wait(ctx); err != nil {
		return "", &TransportError{Path: path, Err: err}
	}

	log.Debugf("GET %s/%s", repo, path)
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	c.observe(resp)
	if err != nil {
		return "", classify(repo, path, resp, err)
	}
	if file == nil {
		return "", &TransportError{Path: path, Err: errors.New("path is a directory")}
	}

	content, err := file.GetContent()
	if err != nil {
		return "", &TransportError{Path: path, Err: errors.Wrap(err, "decoding content")}
	}
	return content, nil
}

// listDir returns no entries, not an error, for a missing directory.
func (c *Client) listDir(ctx context.Context, repo, path string) ([]*github.RepositoryContent, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}

	log.Debugf("LIST %s/%s", repo, path)
	_, entries, resp, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	c.observe(resp)
	if err != nil {
		err = classify(repo, path, resp, err)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.lastRate != nil && c.lastRate.Remaining <= rateLimitFloor {
		if d := time.Until(c.lastRate.Reset.Time); d > 0 {
			log.Warnf("GitHub API quota nearly exhausted (%d left), waiting %s for reset", c.lastRate.Remaining, d.Round(time.Second))
			if err := c.sleep(ctx, d+time.Second); err != nil {
				return err
			}
		}
		c.lastRate = nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) observe(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	r := resp.Rate
	c.lastRate = &r
}

func classify(repo, path string, resp *github.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, repo, path)
	}
	return &TransportError{Path: repo + "/" + path, Err: err}
}

func splitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q is not in owner/name form", repo)
	}
	return owner, name, nil
}

// highest returns the greatest version string, ignoring anything that is not a version.
func highest(versions []string) string {
	var parsed semver.Collection
	for _, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			log.Debugf("ignoring unparseable version %q: %v", v, err)
			continue
		}
		parsed = append(parsed, sv)
	}
	if len(parsed) == 0 {
		return ""
	}
	sort.Sort(parsed)
	return parsed[len(parsed)-1].Original()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
