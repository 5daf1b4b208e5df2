// package services implements HTTP clients for the music provider's Web API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
	"golang.org/x/time/rate"
)

// SessionSource supplies the current session. It is read on every request so a refreshed token is picked up without rebuilding the client.
type SessionSource interface {
	Session() (models.Session, bool, error)
}

// APIError is the provider's error envelope: {"error": {"status": ..., "message": ...}}
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// parseAPIError decodes the error envelope, falling back to the HTTP status text
func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}

	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Message = envelope.Error.Message
		if envelope.Error.Status != 0 {
			apiErr.Status = envelope.Error.Status
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// client carries the request plumbing shared by every endpoint
type client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionSource
	limiter    *rate.Limiter
	logger     *log.Logger
}

// resolve returns target verbatim when it is absolute (a pagination cursor), otherwise joins it to the base URL
func (c *client) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return c.baseURL + target
}

// doRequest performs an authenticated request and decodes a 2xx body into result.
//
// Non-2xx responses are logged as "<message> (<status>)" and returned as an [*APIError] wrapped in [shared.ErrAPIRequest].
// No retry or token refresh is attempted.
func (c *client) doRequest(ctx context.Context, method, target string, body, result any) error {
	s, ok, err := c.session.Session()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return shared.ErrNotAuthenticated
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(target), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		apiErr := parseAPIError(resp.StatusCode, data)
		c.logger.Errorf("%s (%d)", apiErr.Message, apiErr.Status)
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, req.URL.Path, apiErr)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
