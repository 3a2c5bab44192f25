package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

const (
	// DefaultBaseURL is the public DataForSEO API.
	DefaultBaseURL   = "https://api.dataforseo.com"
	searchVolumePath = "/v3/keywords_data/google_ads/search_volume/live"
	statusOK         = 20000
	maxResponseBytes = 4 << 20
)

// Config holds the API credentials.
type Config struct {
	Login      string
	Password   string
	BaseURL    string
	HTTPClient *http.Client
}

// Client calls the search volume endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client. Empty credentials produce a client that reports
// Configured() == false.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger.Named("keywords")}
}

// Configured implements Lookup.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.Login != "" && c.cfg.Password != ""
}

type searchVolumeTask struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
}

type searchVolumeResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Keyword          string   `json:"keyword"`
			SearchVolume     *int     `json:"search_volume"`
			Competition      *string  `json:"competition"`
			CompetitionIndex *int     `json:"competition_index"`
			CPC              *float64 `json:"cpc"`
		} `json:"result"`
	} `json:"tasks"`
}

// Lookup implements Lookup.
func (c *Client) Lookup(ctx context.Context, seeds []string, locale siteinfo.Locale, timeout time.Duration) ([]Metric, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(seeds) == 0 {
		return nil, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal([]searchVolumeTask{{
		Keywords:     seeds,
		LocationCode: locale.LocationCode,
		LanguageCode: locale.Language,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+searchVolumePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Login, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyword metrics request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keyword metrics: unexpected status %d", resp.StatusCode)
	}

	var parsed searchVolumeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode keyword metrics: %w", err)
	}
	if parsed.StatusCode != statusOK {
		return nil, fmt.Errorf("keyword metrics: %d %s", parsed.StatusCode, parsed.StatusMessage)
	}

	var out []Metric
	for _, task := range parsed.Tasks {
		if task.StatusCode != statusOK {
			c.logger.Warn("keyword task failed",
				zap.Int("status_code", task.StatusCode),
				zap.String("status_message", task.StatusMessage))
			continue
		}
		for _, r := range task.Result {
			if r.Keyword == "" {
				continue
			}
			m := Metric{
				Keyword:          r.Keyword,
				SearchVolume:     r.SearchVolume,
				CPC:              r.CPC,
				CompetitionIndex: r.CompetitionIndex,
			}
			if r.Competition != nil {
				m.Competition = strings.ToLower(*r.Competition)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

var _ Lookup = (*Client)(nil)
