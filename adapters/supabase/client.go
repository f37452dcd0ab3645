package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	"github.com/tidwall/gjson"
)

const service = "supabase"

// PostgREST reports an unknown function with this code
const codeFunctionNotFound = "PGRST202"

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Client implements ports.Backend against the Supabase REST and RPC endpoints
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Backend = (*Client)(nil)

// NewClient creates a client for the project at baseURL
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Query reads rows through GET /rest/v1/{table}
func (c *Client) Query(ctx context.Context, spec ports.QuerySpec) ([]ports.Row, error) {
	if !identifier.MatchString(spec.Table) {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %s", core.ErrUnknownTable, spec.Table))
	}

	params := url.Values{}
	if len(spec.Columns) > 0 {
		params.Set("select", strings.Join(spec.Columns, ","))
	}
	for _, f := range spec.Filters {
		if !identifier.MatchString(f.Column) {
			return nil, errors.ValidationError(fmt.Sprintf("invalid filter column %q", f.Column))
		}
		if f.Value == nil && f.Op == ports.OpEq {
			params.Add(f.Column, "is.null")
			continue
		}
		params.Add(f.Column, fmt.Sprintf("%s.%s", f.Op, formatValue(f.Value)))
	}
	if spec.OrderBy != "" {
		dir := "asc"
		if spec.Descending {
			dir = "desc"
		}
		params.Set("order", spec.OrderBy+"."+dir)
	}
	if spec.Limit > 0 {
		params.Set("limit", fmt.Sprint(spec.Limit))
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, spec.Table)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return parseRows(body)
}

// RPC calls POST /rest/v1/rpc/{fn}
func (c *Client) RPC(ctx context.Context, fn string, params map[string]any) (json.RawMessage, error) {
	if !identifier.MatchString(fn) {
		return nil, errors.ValidationError(fmt.Sprintf("invalid procedure name %q", fn))
	}
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rpc parameters")
	}

	endpoint := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)
	body, err := c.do(ctx, http.MethodPost, endpoint, payload, nil)
	if err != nil {
		var apiErr *apiError
		if asAPIError(err, &apiErr) && (apiErr.code == codeFunctionNotFound || apiErr.status == http.StatusNotFound) {
			return nil, core.NewProcedureUnavailableError(fn, err)
		}
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.ExternalServiceError(service, fmt.Errorf("rpc %s returned invalid JSON", fn))
	}
	return json.RawMessage(body), nil
}

// Upsert posts rows with merge-duplicates resolution and returns the stored representation
func (c *Client) Upsert(ctx context.Context, table string, rows []ports.Row, conflictKey []string) ([]ports.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if !identifier.MatchString(table) {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %s", core.ErrUnknownTable, table))
	}

	encoded := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = encodeValue(v)
		}
		encoded[i] = m
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rows")
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(conflictKey) > 0 {
		endpoint += "?" + url.Values{"on_conflict": {strings.Join(conflictKey, ",")}}.Encode()
	}

	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"}
	body, err := c.do(ctx, http.MethodPost, endpoint, payload, headers)
	if err != nil {
		return nil, err
	}
	return parseRows(body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(service, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ExternalServiceError(service, &apiError{
			status:  resp.StatusCode,
			code:    gjson.GetBytes(body, "code").String(),
			message: gjson.GetBytes(body, "message").String(),
		})
	}
	return body, nil
}

func parseRows(body []byte) ([]ports.Row, error) {
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, errors.ExternalServiceError(service, fmt.Errorf("expected a JSON array, got %.64s", string(body)))
	}

	var rows []ports.Row
	for _, item := range result.Array() {
		m, ok := item.Value().(map[string]interface{})
		if !ok {
			continue
		}
		rows = append(rows, ports.Row(m))
	}
	return rows, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "null"
		}
		return t.UTC().Format(time.RFC3339Nano)
	case nil:
		return "null"
	}
	return fmt.Sprint(v)
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}
