package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wm2snap/migrator/pkg/requestid"
)

const DefaultTimeout = 5 * time.Minute

// MigrationClient is an HTTP client for the SnapLogic migration API
type MigrationClient struct {
	endpoint    string
	bearerToken string
	httpClient  *http.Client
}

func NewMigrationClient(endpoint, bearerToken string, timeout time.Duration) *MigrationClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &MigrationClient{
		endpoint:    endpoint,
		bearerToken: bearerToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// MigrationResponse is a successful (200) answer of the migration API.
type MigrationResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// APIError is returned for every non-200 answer of the migration API.
type APIError struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
	Body       string          `json:"body,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("migration API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("migration API returned status %d: %s", e.StatusCode, e.Body)
}

type apiErrorBody struct {
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// Migrate uploads the archive bytes for projectName. It blocks until the API answers or the client times out.
func (c *MigrationClient) Migrate(ctx context.Context, projectName string, payload []byte) (*MigrationResponse, error) {
	endpoint, err := c.migrateURL(projectName)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header, id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call migration API: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, bodyBytes)
	}

	migrationResp := &MigrationResponse{StatusCode: resp.StatusCode}
	if json.Valid(bodyBytes) {
		migrationResp.Body = json.RawMessage(bodyBytes)
	} else if len(bytes.TrimSpace(bodyBytes)) > 0 {
		// keep non JSON answers displayable
		quoted, _ := json.Marshal(string(bodyBytes))
		migrationResp.Body = quoted
	}

	return migrationResp, nil
}

func (c *MigrationClient) migrateURL(projectName string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid migration API URL %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("projectName", projectName)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Message = parsed.Message
		if len(parsed.Details) > 0 && string(parsed.Details) != "null" {
			apiErr.Details = parsed.Details
		}
	}

	return apiErr
}
