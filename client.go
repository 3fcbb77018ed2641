// client.go
// ---------
// Client wires a Provider, a Coordinator, the retry engine, and a plain
// net/http transport into the four Responses operations the rest of the
// codebase calls: CreateResponse, GetResponse, ListInputItems, and
// DeleteResponse. The plain-net/http, manual-header style is carried
// directly from the teacher's adapters/openai_adapter.go and
// adapters/azure_adapter.go; the four operations and their Azure-specific
// behavior (usage-header inlining, x-ms-useragent, request-id
// propagation) are grounded on codex-rs/core/src/azure.rs.
package aoaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// clientVersion is reported in the x-ms-useragent header on Azure calls,
// mirroring codex-cli's own version stamp.
const clientVersion = "0.1.0"

// Client is the top-level entry point: one Client per (provider,
// deployment) pair. Debug gates the same kind of ad hoc stdout tracing
// the teacher's ResilientBridge.debugf does, rather than a structured
// logging dependency.
type Client struct {
	Provider    Provider
	Auth        AuthProvider
	Coordinator *Coordinator
	Estimator   TokenEstimator
	HTTPClient  *http.Client
	Debug       bool
}

// NewClient builds a Client from a ClientConfig, defaulting the HTTP
// transport and falling back to HeuristicEstimator when none is given.
func NewClient(cfg ClientConfig) *Client {
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = HeuristicEstimator{}
	}
	return &Client{
		Provider:    cfg.Provider,
		Auth:        cfg.Auth,
		Coordinator: NewCoordinator(cfg.Coordinator),
		Estimator:   estimator,
		HTTPClient:  &http.Client{},
		Debug:       cfg.Debug,
	}
}

func (c *Client) debugf(format string, args ...any) {
	if c.Debug {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// deploymentKey is the bucket key the coordinator uses for this client's
// provider: Azure callers key by deployment name (the provider name
// itself, since one Client maps to one deployment), others by model.
func (c *Client) deploymentKey(model string) string {
	if c.Provider.IsAzureResponsesEndpoint() {
		return c.Provider.Name
	}
	return model
}

// doJSON sends req, decodes a 2xx JSON body into out, and classifies
// anything else via the error taxonomy. For a non-2xx status the response
// headers are also carried on the returned *Error for the retry engine to
// consult; transport failures carry no headers.
func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	req = req.WithContext(ctx)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, &Error{Kind: KindNetwork, Message: "reading response body: " + err.Error(), Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.Provider.IsAzureResponsesEndpoint() {
			return resp.Header, c.parseAzureError(resp.StatusCode, resp.Header, body)
		}
		return resp.Header, classifyHTTPError(resp.StatusCode, resp.Header, string(body))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, &Error{Kind: KindStream, Message: "decoding response body: " + err.Error(), Cause: err}
		}
	}
	return resp.Header, nil
}

// azureErrorBody is the {"error": {code, message}} shape Azure returns.
type azureErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) parseAzureError(status int, h http.Header, body []byte) *Error {
	var parsed azureErrorBody
	_ = json.Unmarshal(body, &parsed)

	code := parsed.Error.Code
	if code == "" {
		code = "unknown"
	}
	message := parsed.Error.Message
	if message == "" {
		message = string(body)
	}
	requestID := h.Get("azure-openai-request-id")
	errorCode := h.Get("x-ms-error-code")

	return &Error{
		Kind:           KindAzure,
		Status:         status,
		Headers:        h,
		Body:           string(body),
		Message:        message,
		AzureCode:      code,
		AzureRequestID: requestID,
		AzureErrorCode: errorCode,
	}
}

func (c *Client) newRequest(method, path string) (*http.Request, error) {
	req, err := c.Provider.BuildRequest(method, path)
	if err != nil {
		return nil, err
	}
	AddAuthHeaders(req.Header, c.Auth, c.Provider.IsAzureResponsesEndpoint())
	if c.Provider.IsAzureResponsesEndpoint() {
		req.Header.Set("x-ms-useragent", "codex-cli/"+clientVersion)
	}
	return req, nil
}

// estimateRequestTokens sums a heuristic estimate across a request's
// instructions and input items, used to pre-charge the token bucket.
func (c *Client) estimateRequestTokens(req CreateResponseRequest) int {
	total := c.Estimator.EstimateTokens(req.Model, req.Instructions)
	for _, item := range req.Input {
		total += c.Estimator.EstimateTokens(req.Model, string(item.Raw))
	}
	return total
}

// CreateResponse sends a CreateResponseRequest to POST /responses,
// pre-charging the rate-limit coordinator by an estimated token count,
// retrying per the provider's RetryConfig, and reconciling the estimate
// against the response's reported usage once the call succeeds.
func (c *Client) CreateResponse(ctx context.Context, in CreateResponseRequest) (*Response, error) {
	key := c.deploymentKey(in.Model)
	estimated := c.estimateRequestTokens(in)

	if err := c.Coordinator.AcquireForDeployment(ctx, key, in.Model, estimated); err != nil {
		return nil, err
	}

	payload, err := c.marshalWithItemIDs(in)
	if err != nil {
		return nil, err
	}

	var out Response
	policy := c.Provider.Retry.ToPolicy()
	err = RunWithRetry(ctx, policy, func(ctx context.Context, attempt uint64) error {
		req, err := c.newRequest(http.MethodPost, "responses")
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Body = io.NopCloser(bytes.NewReader(payload))
		req.ContentLength = int64(len(payload))

		headers, err := c.doJSON(ctx, req, &out)
		if err != nil {
			c.Coordinator.RecordFailure()
			return err
		}
		c.Coordinator.RecordSuccess()
		c.Coordinator.UpdateFromResponse(headers)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var usage TokenUsage
	if u, ok := out.Extra["usage"]; ok {
		_ = json.Unmarshal(u, &usage)
	}
	c.Coordinator.ReconcileAfterCompleted(key, estimated, usage)

	return &out, nil
}

// marshalWithItemIDs encodes in to JSON and, for Azure providers, patches
// the serialized input array so each item carries the id of the
// in-memory item it was built from.
func (c *Client) marshalWithItemIDs(in CreateResponseRequest) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	if !c.Provider.IsAzureResponsesEndpoint() {
		return data, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if err := AttachItemIDs(payload, in.Input); err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// GetResponse re-fetches a stored response by ID. On Azure, any
// azure-openai-usage header present on the reply is inlined into the
// returned Response's Extra map rather than discarded.
func (c *Client) GetResponse(ctx context.Context, responseID string) (*Response, error) {
	var out Response
	policy := c.Provider.Retry.ToPolicy()
	err := RunWithRetry(ctx, policy, func(ctx context.Context, attempt uint64) error {
		req, err := c.buildSubPathRequest(http.MethodGet, responseID)
		if err != nil {
			return err
		}
		headers, err := c.doJSON(ctx, req, &out)
		if err != nil {
			return err
		}
		if usageHeader := headers.Get("azure-openai-usage"); usageHeader != "" {
			if out.Extra == nil {
				out.Extra = map[string]json.RawMessage{}
			}
			out.Extra["azure_openai_usage_header"] = json.RawMessage(usageHeader)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInputItems fetches GET /responses/{id}/input_items.
func (c *Client) ListInputItems(ctx context.Context, responseID string) (*ResponseInputItemsList, error) {
	var out ResponseInputItemsList
	policy := c.Provider.Retry.ToPolicy()
	err := RunWithRetry(ctx, policy, func(ctx context.Context, attempt uint64) error {
		req, err := c.buildSubPathRequest(http.MethodGet, responseID+"/input_items")
		if err != nil {
			return err
		}
		_, err = c.doJSON(ctx, req, &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResponse issues DELETE /responses/{id}. The API may reply 204 or
// any other 2xx; no body is parsed.
func (c *Client) DeleteResponse(ctx context.Context, responseID string) error {
	policy := c.Provider.Retry.ToPolicy()
	return RunWithRetry(ctx, policy, func(ctx context.Context, attempt uint64) error {
		req, err := c.buildSubPathRequest(http.MethodDelete, responseID)
		if err != nil {
			return err
		}
		_, err = c.doJSON(ctx, req, nil)
		return err
	})
}

// buildSubPathRequest builds a request against "responses/{suffix}",
// using BuildAzureURL to insert the suffix before any existing query
// string when talking to Azure, and the plain URLForPath join otherwise.
func (c *Client) buildSubPathRequest(method, suffix string) (*http.Request, error) {
	var target string
	if c.Provider.IsAzureResponsesEndpoint() {
		target = BuildAzureURL(c.Provider.URLForPath("responses"), suffix)
	} else {
		target = c.Provider.URLForPath("responses/" + suffix)
	}

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.Provider.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	AddAuthHeaders(req.Header, c.Auth, c.Provider.IsAzureResponsesEndpoint())
	if c.Provider.IsAzureResponsesEndpoint() {
		req.Header.Set("x-ms-useragent", "codex-cli/"+clientVersion)
	}
	return req, nil
}
