// Package tikwm fetches popular meme videos from the tikwm.com search API.
// The API is undocumented and rate-limited; transient failures are expected
// and surface as an empty candidate list upstream.
package tikwm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aldikteam/aldikbot/internal/memes"
)

const (
	defaultEndpoint = "https://www.tikwm.com/api/feed/search"
	fetchTimeout    = 15 * time.Second
	perKeywordCount = 40
	userAgent       = "Mozilla/5.0"

	// tikwm returns code=-1 when throttled; one short-delay retry per
	// keyword matches its observed cooldown.
	throttledCode   = -1
	throttleBackoff = 1100 * time.Millisecond
)

// RE2's \b is ASCII-only, so the Cyrillic alternative needs an explicit
// boundary class.
var hashtagMemePattern = regexp.MustCompile(`(?i)#(?:meme|мем)(?:$|[^\p{L}\p{N}_])`)

// Client searches tikwm for meme videos under a fixed keyword set.
type Client struct {
	endpoint string
	keywords []string
	http     *http.Client
}

// New creates a tikwm client. Without arguments it searches the default
// meme keywords; pass keywords to search something else ("sad meme").
func New(keywords ...string) *Client {
	if len(keywords) == 0 {
		keywords = []string{"meme", "мем"}
	}
	return &Client{
		endpoint: defaultEndpoint,
		keywords: keywords,
		http:     &http.Client{Timeout: fetchTimeout},
	}
}

// NewWithEndpoint overrides the API endpoint (tests).
func NewWithEndpoint(endpoint string, keywords ...string) *Client {
	c := New(keywords...)
	c.endpoint = endpoint
	return c
}

func (c *Client) Name() string { return "tikwm" }

// Fetch searches every keyword and returns meme-tagged videos as candidates.
// A keyword that fails is skipped; only a fully failed fetch returns an error.
func (c *Client) Fetch(ctx context.Context) ([]memes.Candidate, error) {
	var results []memes.Candidate
	var lastErr error

	for _, keyword := range c.keywords {
		items, err := c.search(ctx, keyword)
		if err != nil {
			lastErr = err
			continue
		}
		results = append(results, items...)
	}

	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, keyword string) ([]memes.Candidate, error) {
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.doSearch(ctx, keyword)
		if err != nil {
			return nil, err
		}

		if resp.Code == throttledCode && attempt == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(throttleBackoff):
			}
			continue
		}

		return extractCandidates(resp), nil
	}
	return nil, nil
}

type searchResponse struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

// videoItem is the subset of tikwm's video object the bot cares about.
type videoItem struct {
	VideoID     string          `json:"video_id"`
	Title       string          `json:"title"`
	ContentDesc json.RawMessage `json:"content_desc"`
	Play        string          `json:"play"`
	WMPlay      string          `json:"wmplay"`
	PlayCount   json.Number     `json:"play_count"`
	Author      struct {
		UniqueID string `json:"unique_id"`
	} `json:"author"`
}

func (c *Client) doSearch(ctx context.Context, keyword string) (*searchResponse, error) {
	q := url.Values{}
	q.Set("keywords", keyword)
	q.Set("count", fmt.Sprintf("%d", perKeywordCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tikwm search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tikwm decode: %w", err)
	}
	return &parsed, nil
}

// extractCandidates tolerates both payload shapes tikwm serves: a bare list
// of videos, or an object with a "videos" list. Malformed data yields nil.
func extractCandidates(resp *searchResponse) []memes.Candidate {
	var items []videoItem
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		var wrapped struct {
			Videos []videoItem `json:"videos"`
		}
		if err := json.Unmarshal(resp.Data, &wrapped); err != nil {
			return nil
		}
		items = wrapped.Videos
	}

	var out []memes.Candidate
	for _, item := range items {
		if !isMemeVideo(item) || item.VideoID == "" {
			continue
		}

		playURL := strings.TrimSpace(item.Play)
		if playURL == "" {
			playURL = strings.TrimSpace(item.WMPlay)
		}
		webURL := webVideoURL(item)
		if playURL == "" && webURL == "" {
			continue
		}

		plays, _ := item.PlayCount.Int64()
		out = append(out, memes.Candidate{
			ID:         item.VideoID,
			Source:     "tikwm",
			Kind:       memes.KindVideo,
			MediaURL:   playURL,
			WebURL:     webURL,
			Popularity: plays,
		})
	}
	return out
}

// isMemeVideo keeps only videos whose title or description carries a meme
// hashtag or keyword — the search endpoint returns plenty of noise.
func isMemeVideo(item videoItem) bool {
	var descParts []string
	var asList []string
	if err := json.Unmarshal(item.ContentDesc, &asList); err == nil {
		descParts = asList
	} else {
		var asStr string
		if err := json.Unmarshal(item.ContentDesc, &asStr); err == nil {
			descParts = []string{asStr}
		}
	}

	combined := strings.ToLower(item.Title + " " + strings.Join(descParts, " "))
	return hashtagMemePattern.MatchString(combined) ||
		strings.Contains(combined, "meme") ||
		strings.Contains(combined, "мем")
}

func webVideoURL(item videoItem) string {
	if item.VideoID == "" {
		return ""
	}
	if item.Author.UniqueID != "" {
		return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", item.Author.UniqueID, item.VideoID)
	}
	return "https://www.tiktok.com/video/" + item.VideoID
}
