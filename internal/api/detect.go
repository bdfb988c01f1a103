package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/models"
)

const (
	// maxErrorBody limits how much of a non-2xx body is kept for diagnostics
	maxErrorBody = 4096
	// maxResponseBody limits how much of a successful body is read
	maxResponseBody = 1 << 20
)

// Detect sends one prompt to the detection service. It makes exactly one attempt.
func (c *DetectClient) Detect(ctx context.Context, prompt string) (*models.DetectResult, error) {
	if prompt == "" {
		return nil, apierrors.ErrEmptyPrompt
	}

	if c.IsClosed() {
		return nil, apierrors.ErrClientClosed
	}

	endpoint, err := c.Endpoint()
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(models.DetectRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apierrors.IsTimeoutError(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apierrors.NewTimeoutError(fmt.Sprintf("detect at %s after %s", endpoint, c.timeout))
		}
		return nil, apierrors.NewNetworkErrorWithEndpoint("detect", endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, "detect failed", string(errorBody))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, apierrors.NewNetworkErrorWithEndpoint("read detect response", endpoint, err)
	}

	return parseDetectResponse(body)
}

// parseDetectResponse decodes the detect body into a tagged result.
// A non-empty string "warning" wins over "generated_text"; otherwise
// "generated_text" must be a string.
func parseDetectResponse(body []byte) (*models.DetectResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, apierrors.NewParseError("response is not a JSON object", "")
	}

	var result *models.DetectResult

	warning := parsed.Get("warning")
	generated := parsed.Get("generated_text")

	switch {
	case warning.Type == gjson.String && warning.Str != "":
		result = models.NewWarning(warning.Str)
		if generated.Type == gjson.String {
			result.Generated = generated.Str
		}
	case generated.Type == gjson.String:
		result = models.NewGenerated(generated.Str)
	case generated.Exists():
		return nil, apierrors.NewParseError("generated_text is not a string", "generated_text")
	default:
		return nil, apierrors.NewParseError("neither generated_text nor warning present", "generated_text")
	}

	if anomaly := parsed.Get("anomaly"); anomaly.Type == gjson.String {
		result.Anomaly = anomaly.Str
	}

	parsed.Get("sensitive_data").ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		result.Sensitive = append(result.Sensitive, models.SensitiveEntity{
			Entity: item.Get("entity").String(),
			Value:  item.Get("value").String(),
		})
		return true
	})

	return result, nil
}
