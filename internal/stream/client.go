package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

const (
	recommendPath = "/api/v1/recommend"
	contentTypeES = "text/event-stream"

	// errorBodyLimit caps how much of a non-streaming error body is read.
	errorBodyLimit = 64 << 10
)

// Client opens recommendation streams over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a stream client for the given base URL. httpClient may
// be nil, in which case a client without a timeout is used; streams are
// long-lived, so deadlines belong on the request context, not the client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// OpenStream POSTs the request and returns the response body on a 200 with
// an event-stream content type. Any other outcome is returned as a tagged
// *models.AgentError, except caller cancellation which passes through
// untagged.
func (c *Client) OpenStream(ctx context.Context, req *models.RecommendRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, models.NewAgentError(models.ErrorTypeUnknown, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+recommendPath, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewAgentError(models.ErrorTypeUnknown, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentTypeES)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if models.IsCancellation(err) {
			return nil, err
		}
		return nil, models.Classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp)
	}

	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mediaType != contentTypeES {
		resp.Body.Close()
		return nil, models.NewAgentError(models.ErrorTypeAPI,
			fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")), nil)
	}
	return resp.Body, nil
}

// errorFromResponse converts a non-200 response into a tagged error,
// preferring the structured body over the bare status code.
func (c *Client) errorFromResponse(resp *http.Response) *models.AgentError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		agentErr := &models.AgentError{Message: errResp.Message}
		if code := models.ErrorType(errResp.Code); code.Valid() {
			agentErr.Type = code
		} else {
			agentErr.Type = errorTypeForStatus(resp.StatusCode)
		}
		if agentErr.Type == models.ErrorTypeRateLimit {
			agentErr.RetryAfter = retryAfterHint(resp, errResp.RetryAfter)
		}
		return agentErr
	}

	agentErr := models.NewAgentError(errorTypeForStatus(resp.StatusCode),
		fmt.Sprintf("HTTP error %d", resp.StatusCode), nil)
	if agentErr.Type == models.ErrorTypeRateLimit {
		agentErr.RetryAfter = retryAfterHint(resp, 0)
	}
	return agentErr
}

func errorTypeForStatus(status int) models.ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return models.ErrorTypeRateLimit
	case status == http.StatusNotFound:
		return models.ErrorTypeNotFound
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return models.ErrorTypeValidation
	case status >= 500:
		return models.ErrorTypeAPI
	default:
		return models.ErrorTypeUnknown
	}
}

// retryAfterHint prefers the Retry-After header over the body field.
func retryAfterHint(resp *http.Response, bodySeconds int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if bodySeconds > 0 {
		return time.Duration(bodySeconds) * time.Second
	}
	return 0
}
