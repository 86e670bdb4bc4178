package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// Client is the sink interface the sync engine consumes. The engine never
// constructs Notion requests itself; everything goes through these three
// calls so tests can substitute a fake.
type Client interface {
	// QueryByIdentity returns every page in table whose identity property
	// equals identity. Zero results means not-found; more than one is a
	// data-integrity problem the caller must handle.
	QueryByIdentity(ctx context.Context, table Table, identity string) ([]Record, error)

	// CreateRecord creates a page in table with the given fields.
	CreateRecord(ctx context.Context, table Table, f Fields) (*Record, error)

	// UpdateRecord patches the properties of an existing page.
	UpdateRecord(ctx context.Context, table Table, pageID string, f Fields) (*Record, error)
}

// HTTPClient talks to the Notion v1 API.
type HTTPClient struct {
	apiKey    string
	taskDBID  string
	areasDBID string
	baseURL   string
	httpc     *http.Client
	logger    *slog.Logger
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	APIKey          string
	TaskDatabaseID  string
	AreasDatabaseID string
	// BaseURL overrides the Notion endpoint, for tests.
	BaseURL string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewClient builds an HTTPClient. Per-call deadlines come from the caller's
// context; the transport timeout is a backstop.
func NewClient(opts ClientOptions) *HTTPClient {
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		apiKey:    opts.APIKey,
		taskDBID:  opts.TaskDatabaseID,
		areasDBID: opts.AreasDatabaseID,
		baseURL:   base,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		logger:    logger.With("component", "notion"),
	}
}

// DatabaseID returns the configured database id for table.
func (c *HTTPClient) DatabaseID(table Table) string {
	if table == TableAreas {
		return c.areasDBID
	}
	return c.taskDBID
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// QueryByIdentity filters table on its identity rich-text property. The
// page size is small on purpose: any result count above one is already a
// consistency fault, not something to paginate through.
func (c *HTTPClient) QueryByIdentity(ctx context.Context, table Table, identity string) ([]Record, error) {
	reqBody := map[string]any{
		"filter": map[string]any{
			"property":  identityProperty(table),
			"rich_text": map[string]any{"equals": identity},
		},
		"page_size": 10,
	}
	var resp struct {
		Results []page `json:"results"`
	}
	path := fmt.Sprintf("/v1/databases/%s/query", c.DatabaseID(table))
	if err := c.do(ctx, http.MethodPost, path, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("query %s by identity %q: %w", table, identity, err)
	}

	records := make([]Record, 0, len(resp.Results))
	for _, pg := range resp.Results {
		records = append(records, recordFromPage(pg, table))
	}
	return records, nil
}

// CreateRecord creates a new page in table.
func (c *HTTPClient) CreateRecord(ctx context.Context, table Table, f Fields) (*Record, error) {
	reqBody := map[string]any{
		"parent":     map[string]any{"database_id": c.DatabaseID(table)},
		"properties": f.properties(table),
	}
	var pg page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", reqBody, &pg); err != nil {
		return nil, fmt.Errorf("create %s record: %w", table, err)
	}
	c.logger.Debug("created page", "table", string(table), "page_id", pg.ID, "identity", f.Identity)
	rec := recordFromPage(pg, table)
	return &rec, nil
}

// UpdateRecord patches pageID with the non-nil fields of f.
func (c *HTTPClient) UpdateRecord(ctx context.Context, table Table, pageID string, f Fields) (*Record, error) {
	reqBody := map[string]any{"properties": f.properties(table)}
	var pg page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+pageID, reqBody, &pg); err != nil {
		return nil, fmt.Errorf("update page %s: %w", pageID, err)
	}
	rec := recordFromPage(pg, table)
	return &rec, nil
}
