package anp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client fetches the national port authority movement feed
type Client struct {
	client  *http.Client
	feedURL string
	log     zerolog.Logger
}

// NewClient creates a new movement feed client
func NewClient(feedURL string, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		feedURL: feedURL,
		log:     log.With().Str("client", "anp").Logger(),
	}
}

// FetchMovements retrieves the current movement snapshot, retrying once
// on any failure. The feed endpoint drops connections regularly.
func (c *Client) FetchMovements() ([]MovementEntry, error) {
	entries, err := c.fetch()
	if err == nil {
		return entries, nil
	}

	c.log.Warn().Err(err).Msg("Feed fetch failed, retrying once")
	entries, retryErr := c.fetch()
	if retryErr != nil {
		return nil, fmt.Errorf("failed to fetch movement feed: %w", retryErr)
	}
	return entries, nil
}

func (c *Client) fetch() ([]MovementEntry, error) {
	resp, err := c.client.Get(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var entries []MovementEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode feed JSON: %w", err)
	}

	c.log.Debug().Int("entries", len(entries)).Msg("Movement feed fetched")

	return entries, nil
}

// wcfDatePattern matches WCF JSON dates like /Date(1718000000000+0100)/.
// The offset, when present, is informational; the millisecond value is
// already an epoch instant.
var wcfDatePattern = regexp.MustCompile(`/Date\((\d+)([+-]\d{4})?\)/`)

// ParseWCFDate decodes a WCF-style JSON date into UTC.
// Returns the zero time when the value is empty or unparseable.
func ParseWCFDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	m := wcfDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
