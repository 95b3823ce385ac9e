package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Desktop user agents rotated per session; the upstream feed rejects
// clients without a browser-looking User-Agent.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// Cookies the upstream sets on the listing page and expects back on
// feed requests.
var requiredCookies = []string{"et_token", "et_client_country", "check_pc_mobile"}

// Session holds the scraping session state for one collection run:
// cookie jar, a user agent picked at construction, and the listing-page
// referer the feed endpoint checks.
type Session struct {
	client    *http.Client
	listURL   string
	userAgent string
	logger    *slog.Logger
}

// NewSession builds a session with a fresh cookie jar. listURL is the
// news listing page used both to bootstrap cookies and as Referer.
func NewSession(listURL string, timeout time.Duration, logger *slog.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Session{
		client:    &http.Client{Jar: jar, Timeout: timeout},
		listURL:   listURL,
		userAgent: userAgents[rand.Intn(len(userAgents))],
		logger:    logger,
	}, nil
}

// Bootstrap fetches the listing page so the jar picks up the session
// cookies. Missing individual cookies are logged, not fatal; only the
// request itself failing aborts the collection day.
func (s *Session) Bootstrap(ctx context.Context) error {
	resp, err := s.Get(ctx, s.listURL)
	if err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bootstrap session: upstream returned %s", resp.Status)
	}

	have := map[string]bool{}
	if u, err := url.Parse(s.listURL); err == nil {
		for _, c := range s.client.Jar.Cookies(u) {
			have[c.Name] = true
		}
	}
	for _, name := range requiredCookies {
		if s.logger != nil {
			s.logger.Debug("session cookie", "name", name, "present", have[name])
		}
	}

	return nil
}

// Get issues a GET with the session's identity headers.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	s.setHeaders(req)
	return s.client.Do(req)
}

// PostForm issues a form POST with the session's identity headers.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setHeaders(req)
	return s.client.Do(req)
}

func (s *Session) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Referer", s.listURL)
}
