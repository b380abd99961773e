package watchlist

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v32/github"
)

const (
	// DefaultBaseURL is the public GitHub REST API
	DefaultBaseURL = "https://api.github.com/"
	// DefaultPerPage is the maximum page size the API allows
	DefaultPerPage = 100

	userAgent = "git-watch-mirror"
)

// Client lists watched repositories of a user.
type Client struct {
	gh      *github.Client
	perPage int
	useSSH  bool
	log     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	baseURL    string
	perPage    int
	timeout    time.Duration
	useSSH     bool
	log        *slog.Logger
}

// New creates a new Client, by default it talks to the public GitHub API.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL: DefaultBaseURL,
		perPage: DefaultPerPage,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	// BaseURL must have trailing slash, go-github refuses to build requests otherwise
	baseURL, err := url.Parse(strings.TrimRight(cfg.baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API base url '%s' err:%w", cfg.baseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid API base url '%s' scheme and host are required", cfg.baseURL)
	}

	log := cfg.log
	if log == nil {
		log = slog.Default()
	}

	gh := github.NewClient(httpClient)
	gh.BaseURL = baseURL
	gh.UserAgent = userAgent

	return &Client{
		gh:      gh,
		perPage: cfg.perPage,
		useSSH:  cfg.useSSH,
		log:     log,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithBaseURL sets the API root, e.g. for GitHub Enterprise `https://host/api/v3/`.
func WithBaseURL(u string) Option {
	return func(cfg *clientConfig) error {
		if u == "" {
			return fmt.Errorf("API base url cannot be empty")
		}
		cfg.baseURL = u
		return nil
	}
}

// WithPerPage sets requested page size, the API might still return less.
func WithPerPage(n int) Option {
	return func(cfg *clientConfig) error {
		if n < 1 || n > DefaultPerPage {
			return fmt.Errorf("page size must be between 1 and %d, got %d", DefaultPerPage, n)
		}
		cfg.perPage = n
		return nil
	}
}

// WithTimeout sets a timeout on every API request.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithSSH makes descriptors use the ssh clone url instead of the https one.
func WithSSH(useSSH bool) Option {
	return func(cfg *clientConfig) error {
		cfg.useSSH = useSSH
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.log = l
		return nil
	}
}

// Fetch returns filtered watched repositories of the given user starting at
// startPage. Repositories are excluded if their name or "owner/name" is in
// ignore set or if they are owned by the user and includeOwn is false.
// Any error aborts the listing and no partial result is returned.
func (c *Client) Fetch(ctx context.Context, user string, ignore IgnoreSet, includeOwn bool, startPage int) ([]RepoDescriptor, error) {
	f := Filter{User: user, Ignore: ignore, IncludeOwn: includeOwn}

	var repos []RepoDescriptor
	for page, err := range c.Pages(ctx, user, startPage) {
		if err != nil {
			return nil, err
		}
		repos = append(repos, f.Apply(page.Repos)...)
	}

	c.log.Info("fetched watched repositories", "user", user, "count", len(repos))
	return repos, nil
}

// Pages returns an iterator over unfiltered pages of the watched repositories
// of the given user. Pages are requested lazily, one request per iteration.
// Every call of the returned sequence starts over at startPage. Iteration
// stops after the first error.
func (c *Client) Pages(ctx context.Context, user string, startPage int) iter.Seq2[Page, error] {
	if startPage < 1 {
		startPage = 1
	}

	return func(yield func(Page, error) bool) {
		if user == "" {
			yield(Page{}, fmt.Errorf("user cannot be empty"))
			return
		}

		page := startPage
		for {
			p, next, err := c.page(ctx, user, page)
			if err != nil {
				yield(Page{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
			// API signals further pages only via Link header, also guard
			// against a misbehaving server pointing back at visited pages
			if next <= page {
				return
			}
			page = next
		}
	}
}

// page requests a single page and returns it with the next page number
// or 0 if there are no more pages.
func (c *Client) page(ctx context.Context, user string, page int) (Page, int, error) {
	opts := &github.ListOptions{Page: page, PerPage: c.perPage}

	reqURL := c.gh.BaseURL.String() + fmt.Sprintf("users/%s/subscriptions?page=%d", user, page)
	c.log.Debug("requesting watched repositories", "user", user, "page", page)

	repos, resp, err := c.gh.Activity.ListWatched(ctx, user, opts)
	if err != nil {
		// go-github returns a response only if the API actually answered
		if resp != nil && resp.Response != nil {
			return Page{}, 0, &APIError{URL: reqURL, StatusCode: resp.StatusCode, Err: err}
		}
		return Page{}, 0, &NetworkError{URL: reqURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, 0, &APIError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	p := Page{Number: page, Repos: make([]RepoDescriptor, 0, len(repos))}
	for _, r := range repos {
		p.Repos = append(p.Repos, c.descriptor(r))
	}

	c.log.Debug("received watched repositories", "user", user, "page", page, "count", len(p.Repos), "next", resp.NextPage)
	return p, resp.NextPage, nil
}

func (c *Client) descriptor(r *github.Repository) RepoDescriptor {
	cloneURL := r.GetCloneURL()
	if c.useSSH && r.GetSSHURL() != "" {
		cloneURL = r.GetSSHURL()
	}
	return RepoDescriptor{
		Name:          r.GetName(),
		CloneURL:      cloneURL,
		OwnerLogin:    r.GetOwner().GetLogin(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}
