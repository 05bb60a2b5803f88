package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
)

const (
	providerName       = "backend"
	defaultBaseURL     = "http://localhost:8000"
	defaultHTTPTimeout = 30 * time.Second
	analysisPath       = "/api/image-analysis"
	healthPath         = "/api/health"

	envBaseURL = "SIGHT_BACKEND_URL"
	envToken   = "SIGHT_BACKEND_TOKEN"
)

const (
	// DefaultListLimit matches the backend's own default page size.
	DefaultListLimit = 50
	URIScanLimit     = 1000
)

var ErrNotFound = errors.New("analysis not found")

// Client talks to the analysis history backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func New(opts ...model.ProviderOption) *Client {
	cfg := model.ResolveProviderOpts(opts...)

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(envBaseURL))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envToken))
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Save creates the record or updates the existing one with the same
// (image_name, analysis_type).
func (c *Client) Save(ctx context.Context, record Record) (Record, error) {
	if strings.TrimSpace(record.ImageName) == "" {
		return Record{}, utils.WrapIfNotNil(errors.New("image name is required"))
	}
	saved := Record{}
	err := c.do(ctx, http.MethodPost, analysisPath, record, &saved)
	return saved, utils.WrapIfNotNil(err)
}

// List returns the newest DefaultListLimit analyses, optionally filtered by mode.
func (c *Client) List(ctx context.Context, analysisType string) ([]Record, error) {
	return c.ListN(ctx, analysisType, DefaultListLimit)
}

// ListN is List with an explicit cap on the number of records returned.
func (c *Client) ListN(ctx context.Context, analysisType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if analysisType = strings.TrimSpace(analysisType); analysisType != "" {
		query.Set("analysis_type", analysisType)
	}
	path := analysisPath + "?" + query.Encode()
	records := make([]Record, 0)
	err := c.do(ctx, http.MethodGet, path, nil, &records)
	return records, utils.WrapIfNotNil(err)
}

func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	record := Record{}
	err := c.do(ctx, http.MethodGet, analysisPath+"/"+url.PathEscape(id), nil, &record)
	return record, utils.WrapIfNotNil(err)
}

// Search is the backend's case-insensitive substring search on image name.
func (c *Client) Search(ctx context.Context, name string) ([]Record, error) {
	records := make([]Record, 0)
	err := c.do(ctx, http.MethodGet, analysisPath+"/search/"+url.PathEscape(name), nil, &records)
	return records, utils.WrapIfNotNil(err)
}

func (c *Client) Update(ctx context.Context, id string, update Update) (Record, error) {
	record := Record{}
	err := c.do(ctx, http.MethodPut, analysisPath+"/"+url.PathEscape(id), update, &record)
	return record, utils.WrapIfNotNil(err)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return utils.WrapIfNotNil(c.do(ctx, http.MethodDelete, analysisPath+"/"+url.PathEscape(id), nil, nil))
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	health := Health{}
	err := c.do(ctx, http.MethodGet, healthPath, nil, &health)
	return health, utils.WrapIfNotNil(err)
}

// FindByName returns the stored analysis whose name matches exactly
// (case-insensitive) for the given mode. Lookup failures count as a miss.
func (c *Client) FindByName(ctx context.Context, name string, mode model.Mode) *Record {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	records, err := c.Search(ctx, name)
	if err != nil {
		logging.NewLogger(ctx).Warnf("cache lookup by name failed: %v", err)
		return nil
	}
	for i := range records {
		if records[i].AnalysisType == string(mode) && strings.EqualFold(strings.TrimSpace(records[i].ImageName), name) {
			return &records[i]
		}
	}
	return nil
}

// FindByImageURI scans the stored analyses for a matching image URI. The
// backend has no URI index and no offset parameter, so this lists the newest
// URIScanLimit records of the mode; older captures are not found.
func (c *Client) FindByImageURI(ctx context.Context, imageURI string, mode model.Mode) *Record {
	if strings.TrimSpace(imageURI) == "" {
		return nil
	}
	records, err := c.ListN(ctx, string(mode), URIScanLimit)
	if err != nil {
		logging.NewLogger(ctx).Warnf("cache lookup by image uri failed: %v", err)
		return nil
	}
	for i := range records {
		if records[i].Metadata.ImageURI == imageURI {
			return &records[i]
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		requestBits, err := json.Marshal(body)
		if err != nil {
			return utils.WrapIfNotNil(err)
		}
		reader = bytes.NewReader(requestBits)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	httpRequest.Header.Set("Accept", "application/json")
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if httpResponse.StatusCode == http.StatusNotFound {
		return utils.WrapIfNotNil(fmt.Errorf("%w: %s", ErrNotFound, path))
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return utils.WrapIfNotNil(model.NewProviderError(providerName, httpResponse.StatusCode, string(responseBits)))
	}
	if out == nil || len(bytes.TrimSpace(responseBits)) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBits, out); err != nil {
		return utils.WrapIfNotNil(fmt.Errorf("%w: %v", model.ErrMalformedResponse, err))
	}
	return nil
}
