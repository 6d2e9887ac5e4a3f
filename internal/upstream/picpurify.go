package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/novamoderation/novamod/internal/config"

	"github.com/tidwall/gjson"
)

// Result is the normalized outcome of one classification call. The typed
// fields drive billing and branching; Raw preserves the full upstream payload
// for passthrough and auditing.
type Result struct {
	Status          string
	FinalDecision   string
	ConfidenceScore float64
	TaskCall        string
	MediaID         string
	Raw             json.RawMessage
}

// Success reports whether the upstream classified the image successfully.
func (r *Result) Success() bool {
	return r != nil && r.Status == "success"
}

// Error represents a non-2xx transport response from the classifier.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: classifier returned status %d", e.StatusCode)
}

// Client calls the PicPurify analyse endpoint. It holds the upstream
// credential; callers never see it.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Classify sends exactly one classification request. There are no retries;
// a transport failure or non-2xx response surfaces immediately.
func (c *Client) Classify(ctx context.Context, imageURL, tasks string) (*Result, error) {
	form := url.Values{}
	form.Set("API_KEY", c.apiKey)
	form.Set("task", tasks)
	form.Set("url_image", imageURL)

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if errReq != nil {
		return nil, fmt.Errorf("upstream: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("upstream: call classifier: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("upstream: read response: %w", errRead)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseResult(body), nil
}

// parseResult lifts the fields this service inspects out of the opaque
// upstream payload.
func parseResult(body []byte) *Result {
	return &Result{
		Status:          gjson.GetBytes(body, "status").String(),
		FinalDecision:   gjson.GetBytes(body, "final_decision").String(),
		ConfidenceScore: gjson.GetBytes(body, "confidence_score_decision").Float(),
		TaskCall:        gjson.GetBytes(body, "task_call").String(),
		MediaID:         gjson.GetBytes(body, "media.media_id").String(),
		Raw:             json.RawMessage(body),
	}
}
