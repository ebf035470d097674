// Package inflact fetches meme photos from an Instagram profile through the
// inflact.com viewer API. The request signing scheme was reverse engineered
// from the site's frontend and may break independently of the bot; failures
// degrade to zero candidates.
package inflact

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aldikteam/aldikbot/internal/memes"
)

const (
	defaultEndpoint = "https://inflact.com/downloader/api/viewer/posts/"
	defaultProfile  = "aramems"
	fetchTimeout    = 20 * time.Second
	userAgent       = "Mozilla/5.0"
)

// tokenBlocks is the obfuscated key material lifted from the frontend.
// Each block decodes to 8 chars which are then XOR-ed with their index.
var tokenBlocks = [][]int{
	{57, 100, 48, 54, 51, 60, 48, 102},
	{98, 53, 59, 55, 51, 100, 103, 100},
	{51, 50, 48, 101, 102, 53, 48, 63},
	{49, 103, 52, 50, 49, 100, 51, 100},
	{99, 48, 96, 98, 98, 96, 101, 62},
	{53, 49, 53, 54, 97, 50, 99, 62},
	{55, 57, 97, 55, 50, 61, 101, 62},
	{100, 101, 97, 55, 103, 51, 54, 97},
}

// Client scrapes photo posts from one Instagram profile.
type Client struct {
	endpoint string
	profile  string
	clientID string
	now      func() time.Time
	http     *http.Client
}

// New creates a client for the given profile; empty means the default meme
// profile.
func New(profile string) *Client {
	if profile == "" {
		profile = defaultProfile
	}
	return &Client{
		endpoint: defaultEndpoint,
		profile:  profile,
		clientID: randomHex(16),
		now:      time.Now,
		http:     &http.Client{Timeout: fetchTimeout},
	}
}

// NewWithEndpoint overrides the endpoint (tests).
func NewWithEndpoint(endpoint, profile string) *Client {
	c := New(profile)
	c.endpoint = endpoint
	return c
}

func (c *Client) Name() string { return "inflact" }

// RefererURL is sent both on the API call and on image downloads — the CDN
// rejects requests without it.
func (c *Client) RefererURL() string {
	return "https://inflact.com/profiles/instagram/" + c.profile + "/"
}

// Fetch returns the profile's current photo posts as candidates.
func (c *Client) Fetch(ctx context.Context) ([]memes.Candidate, error) {
	form := url.Values{}
	form.Set("url", c.profile)
	form.Set("cursor", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.authHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inflact posts: %w", err)
	}
	defer resp.Body.Close()

	var payload postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("inflact decode: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("inflact status %q", payload.Status)
	}

	return extractCandidates(&payload), nil
}

// authHeaders builds the signed X-Client-Token / X-Client-Signature pair the
// API validates: a base64 JSON payload plus its HMAC-SHA256 over the
// deobfuscated secret.
func (c *Client) authHeaders() map[string]string {
	payload := fmt.Sprintf(`{"timestamp":%d,"clientId":%q,"nonce":%q}`,
		c.now().Unix(), c.clientID, randomHex(16))

	mac := hmac.New(sha256.New, []byte(secretKey()))
	mac.Write([]byte(payload))

	return map[string]string{
		"X-Client-Token":     base64.StdEncoding.EncodeToString([]byte(payload)),
		"X-Client-Signature": hex.EncodeToString(mac.Sum(nil)),
		"Referer":            c.RefererURL(),
	}
}

// secretKey reassembles the signing key from the obfuscated blocks.
func secretKey() string {
	var b strings.Builder
	for _, block := range tokenBlocks {
		b.WriteString(xorWithIndex(block))
	}
	return b.String()
}

func xorWithIndex(block []int) string {
	n := len(block)
	out := make([]rune, n)
	for i, v := range block {
		out[i] = rune(v ^ (i % n))
	}
	return string(out)
}

func randomHex(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable anyway; a zero nonce only
		// weakens the scraper signature, not the bot.
		return strings.Repeat("0", nBytes*2)
	}
	return hex.EncodeToString(buf)
}

type postsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Posts struct {
			Data struct {
				User struct {
					Timeline struct {
						Edges []struct {
							Node postNode `json:"node"`
						} `json:"edges"`
					} `json:"edge_owner_to_timeline_media"`
				} `json:"user"`
			} `json:"data"`
		} `json:"posts"`
	} `json:"data"`
}

type postNode struct {
	Typename   string `json:"__typename"`
	ID         string `json:"id"`
	DisplayURL string `json:"display_url"`
	Sidecar    struct {
		Edges []struct {
			Node postNode `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

func extractCandidates(payload *postsResponse) []memes.Candidate {
	seen := make(map[string]bool)
	var out []memes.Candidate

	add := func(id, imageURL string) {
		if id == "" || imageURL == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, memes.Candidate{
			ID:       "insta_photo:" + id,
			Source:   "inflact",
			Kind:     memes.KindPhoto,
			MediaURL: imageURL,
		})
	}

	for _, edge := range payload.Data.Posts.Data.User.Timeline.Edges {
		node := edge.Node
		switch node.Typename {
		case "GraphImage", "XDTGraphImage":
			id := node.ID
			image := NormalizeImageURL(node.DisplayURL)
			if id == "" && image != "" {
				id = contentID(image)
			}
			add(id, image)

		case "GraphSidecar", "XDTGraphSidecar":
			for i, child := range node.Sidecar.Edges {
				cn := child.Node
				if cn.Typename != "GraphImage" && cn.Typename != "XDTGraphImage" {
					continue
				}
				image := NormalizeImageURL(cn.DisplayURL)
				if image == "" {
					continue
				}
				id := cn.ID
				if id == "" {
					id = node.ID
				}
				if id == "" {
					id = contentID(fmt.Sprintf("%d:%s", i, image))
				}
				add(id, image)
			}
		}
	}
	return out
}

func contentID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:24]
}

// NormalizeImageURL strips the "stp" transform parameter from scontent URLs;
// wrapped cdn.inflact.com URLs are left alone — they download more reliably
// than direct scontent links.
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if strings.Contains(parsed.Host, "cdn.inflact.com") {
		return raw
	}

	q := parsed.Query()
	q.Del("stp")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
