package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/nikvoid/nndb-core/internal/model"
)

const pixivAPIBase = "https://app-api.pixiv.net"

// webFilenameRex matches images saved from the Pixiv web client, e.g.
// "104550403_p0_master1200.jpg" (work_id, page, size tier).
var webFilenameRex = regexp.MustCompile(`(\d+)_p\d+_master\d+`)

// appFilenameRex matches images saved from the Pixiv mobile app, e.g.
// "illust_103201575_20221210_034038.png" (work_id, date, time).
var appFilenameRex = regexp.MustCompile(`illust_(\d+)_\d+_\d+`)

// Credentials configures OAuth access to the Pixiv app API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Pixiv fetches illustration metadata from the Pixiv app API, rate-limited
// to be a polite API consumer and retried once on transient failure
// (spec.md §4.4 "single attempt + bounded retry").
type Pixiv struct {
	creds  *Credentials
	client *http.Client
	limit  *rate.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	cacheMu sync.Mutex
	cache   map[int64]illust
}

// NewPixiv constructs the fetcher. creds is nil when no Pixiv credentials
// were configured, in which case Available always reports false (spec.md
// §4.4 "fetchers degrade gracefully without credentials").
func NewPixiv(creds *Credentials) *Pixiv {
	return &Pixiv{
		creds:  creds,
		client: &http.Client{Timeout: 15 * time.Second},
		limit:  rate.NewLimiter(rate.Every(time.Second), 2),
		cache:  make(map[int64]illust),
	}
}

func (p *Pixiv) Source() model.Source { return model.SourcePixiv }

func (p *Pixiv) Supported(imp PendingImport) bool {
	return appFilenameRex.MatchString(imp.OrigFilename) || webFilenameRex.MatchString(imp.OrigFilename)
}

func (p *Pixiv) Available() bool { return p.creds != nil }

func (p *Pixiv) Fetch(ctx context.Context, imp PendingImport) (*model.ElementMetadata, error) {
	if p.creds == nil {
		return nil, fmt.Errorf("pixiv: client is not configured")
	}

	illustID, err := extractIllustID(imp.OrigFilename)
	if err != nil {
		return nil, err
	}

	p.cacheMu.Lock()
	cached, ok := p.cache[illustID]
	p.cacheMu.Unlock()
	if ok {
		meta := extractMetadata(cached)
		return &meta, nil
	}

	if err := p.limit.Wait(ctx); err != nil {
		return nil, err
	}

	il, found, err := p.fetchIllustWithRetry(ctx, illustID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	p.cacheMu.Lock()
	p.cache[illustID] = il
	p.cacheMu.Unlock()

	meta := extractMetadata(il)
	return &meta, nil
}

func extractIllustID(filename string) (int64, error) {
	var raw string
	if m := appFilenameRex.FindStringSubmatch(filename); m != nil {
		raw = m[1]
	} else if m := webFilenameRex.FindStringSubmatch(filename); m != nil {
		raw = m[1]
	} else {
		return 0, fmt.Errorf("pixiv: failed to get illust id from %q", filename)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// fetchIllustWithRetry issues one HTTP call with a single bounded retry on
// transient (5xx/network) failure, per spec.md §4.4's retry policy.
func (p *Pixiv) fetchIllustWithRetry(ctx context.Context, illustID int64) (illust, bool, error) {
	var result illustResponse
	var found bool

	operation := func() error {
		token, err := p.accessTokenFor(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		endpoint := fmt.Sprintf("%s/v1/illust/detail?illust_id=%d", pixivAPIBase, illustID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			found = true
			return json.NewDecoder(resp.Body).Decode(&result)
		case http.StatusNotFound:
			found = false
			return nil
		default:
			if resp.StatusCode >= 500 {
				return fmt.Errorf("pixiv: server error %d", resp.StatusCode)
			}
			return backoff.Permanent(fmt.Errorf("pixiv: unexpected status %d", resp.StatusCode))
		}
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return illust{}, false, err
	}

	return result.Illust, found, nil
}

// accessTokenFor exchanges the configured refresh token for a short-lived
// access token, caching it until shortly before expiry.
func (p *Pixiv) accessTokenFor(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{
		"client_id":     {p.creds.ClientID},
		"client_secret": {p.creds.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.creds.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://oauth.secure.pixiv.net/auth/token", nil)
	if err != nil {
		return "", err
	}
	req.URL.RawQuery = form.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pixiv: token refresh failed with status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}

	p.accessToken = tok.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return p.accessToken, nil
}
