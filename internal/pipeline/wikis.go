package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikvoid/nndb-core/internal/storage"
)

// danbooruPageLimit is the per-page result count used for both tag and
// artist pagination, matching the original's PaginatedRequest.limit.
const danbooruPageLimit = 1000

// danbooruMaxPages mirrors the original's comment: page 1000 is the
// deepest an unauthenticated/non-premium Danbooru account can reach, and a
// million tags sorted by post count is already far more than needed.
const danbooruMaxPages = 1000

type danbooruTagEntry struct {
	Name     string `json:"name"`
	Category int    `json:"category"`
	WikiPage *struct {
		OtherNames []string `json:"other_names"`
	} `json:"wiki_page"`
}

type danbooruArtistEntry struct {
	Name       string   `json:"name"`
	OtherNames []string `json:"other_names"`
}

// FetchWikis pulls tag and artist documentation pages from Danbooru
// (spec.md §4.6), mirroring update_danbooru_wikis: paginate tags.json
// ordered by count, then artists.json ordered by post_count, treating a
// 410 Gone response as end-of-pagination rather than an error. A second
// call while one is already running is a no-op.
func (d *Driver) FetchWikis(ctx context.Context) (int, error) {
	guard, ok := d.procs.FetchWikis.Begin()
	if !ok {
		return 0, nil
	}
	defer guard.Release()
	ctx, _ = d.runContext(ctx, guard)

	client := &http.Client{Timeout: 30 * time.Second}
	guard.SetTotal(danbooruMaxPages)

	tagCount, err := d.fetchDanbooruPages(ctx, client, guard, "tags.json", "count", "name,category,wiki_page[other_names]",
		func(body []byte) ([]storage.WikiEntry, error) {
			var page []danbooruTagEntry
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, err
			}
			entries := make([]storage.WikiEntry, len(page))
			for i, t := range page {
				var others string
				if t.WikiPage != nil {
					others = strings.Join(t.WikiPage.OtherNames, ", ")
				}
				entries[i] = storage.WikiEntry{TagName: t.Name, Body: others, FetchedAt: fetchedAtNow()}
			}
			return entries, nil
		})
	if err != nil {
		return tagCount, err
	}

	guard.SetTotal(danbooruMaxPages)
	artistCount, err := d.fetchDanbooruPages(ctx, client, guard, "artists.json", "post_count", "name,other_names",
		func(body []byte) ([]storage.WikiEntry, error) {
			var page []danbooruArtistEntry
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, err
			}
			entries := make([]storage.WikiEntry, len(page))
			for i, a := range page {
				entries[i] = storage.WikiEntry{
					TagName:   a.Name,
					Body:      strings.Join(a.OtherNames, ", "),
					FetchedAt: fetchedAtNow(),
				}
			}
			return entries, nil
		})
	if err != nil {
		return tagCount + artistCount, err
	}

	aliases, err := d.store.TagAliases(ctx)
	if err != nil {
		return tagCount + artistCount, err
	}
	if err := d.aliasCache.Reload(ctx, aliases); err != nil {
		return tagCount + artistCount, err
	}

	return tagCount + artistCount, nil
}

// fetchDanbooruPages walks one Danbooru search endpoint page by page,
// decoding each page with decode and persisting it via AddWikis, until a
// page comes back empty or the server returns 410 Gone.
func (d *Driver) fetchDanbooruPages(
	ctx context.Context,
	client *http.Client,
	guard interface{ Increment() },
	endpoint, order, only string,
	decode func([]byte) ([]storage.WikiEntry, error),
) (int, error) {
	var total int

	for page := 0; page < danbooruMaxPages; page++ {
		guard.Increment()

		entries, err := d.fetchDanbooruPage(ctx, client, endpoint, order, only, page, decode)
		if err != nil {
			return total, err
		}
		if len(entries) == 0 {
			break
		}

		if err := d.store.AddWikis(ctx, entries); err != nil {
			return total, err
		}
		total += len(entries)
	}

	return total, nil
}

func (d *Driver) fetchDanbooruPage(
	ctx context.Context,
	client *http.Client,
	endpoint, order, only string,
	page int,
	decode func([]byte) ([]storage.WikiEntry, error),
) ([]storage.WikiEntry, error) {
	q := url.Values{}
	q.Set("search[order]", order)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(danbooruPageLimit))
	q.Set("only", only)

	reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(d.danbooruBase, "/"), endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	// Danbooru rejects the default Go user-agent.
	req.Header.Set("User-Agent", "nndb-core-wiki-sync")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusGone:
		return nil, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return decode(body)
	default:
		return nil, fmt.Errorf("wikis: %s returned status %d", endpoint, resp.StatusCode)
	}
}

func fetchedAtNow() time.Time {
	return time.Now()
}
