package estat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
)

// DefaultBaseURL is the production endpoint of the e-Stat 3.0 JSON API.
const DefaultBaseURL = "https://api.e-stat.go.jp/rest/3.0/app/json"

// maxErrorBody caps how much of an error response lands in the error message.
const maxErrorBody = 512

// Client calls the e-Stat REST API. It implements the search, metadata, and
// data collaborators of the pipeline.
type Client struct {
	appID      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an e-Stat client. An empty baseURL selects the production
// endpoint.
func NewClient(appID, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		appID:      appID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search runs getStatsList and returns the matching table descriptors.
func (c *Client) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.TableDescriptor, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(criteria.Limit))
	if criteria.Keyword != "" {
		params.Set("searchWord", criteria.Keyword)
	}
	if criteria.SurveyYears != "" {
		params.Set("surveyYears", criteria.SurveyYears)
	}
	if criteria.StatsField != "" {
		params.Set("statsField", criteria.StatsField)
	}

	body, err := c.get(ctx, "getStatsList", params)
	if err != nil {
		return nil, err
	}

	var env domain.StatsListEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode stats list: %w", err)
	}
	if err := resultError("getStatsList", env.GetStatsList.Result); err != nil {
		return nil, err
	}
	return env.GetStatsList.DatalistInf.TableInfs, nil
}

// FetchMetadata runs getMetaInfo for one table and returns the raw document.
// The classification index is built from it downstream.
func (c *Client) FetchMetadata(ctx context.Context, tableID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("statsDataId", tableID)

	body, err := c.get(ctx, "getMetaInfo", params)
	if err != nil {
		return nil, err
	}

	var env domain.MetaInfoEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode meta info: %w", err)
	}
	if err := resultError("getMetaInfo", env.GetMetaInfo.Result); err != nil {
		return nil, err
	}
	return body, nil
}

// FetchData runs getStatsData for one table and returns the raw payload.
func (c *Client) FetchData(ctx context.Context, tableID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("statsDataId", tableID)
	params.Set("metaGetFlg", "N")

	body, err := c.get(ctx, "getStatsData", params)
	if err != nil {
		return nil, err
	}

	var env domain.StatsDataEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode stats data: %w", err)
	}
	if err := resultError("getStatsData", env.GetStatsData.Result); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("appId", c.appID)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	c.logger.Debug("estat request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), maxErrorBody),
		}
	}
	return body, nil
}

// resultError converts a non-zero embedded RESULT status into an APIError.
// e-Stat reports appId problems this way on an HTTP 200.
func resultError(endpoint string, r domain.Result) error {
	if r.Status == 0 {
		return nil
	}
	return &APIError{
		Endpoint:   endpoint,
		ResultCode: r.Status,
		Message:    r.ErrorMsg,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
