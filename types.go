// types.go
// --------
// The request/response data model. Grounded on
// openai_schema/src/lib.rs::CreateResponseRequest/Response for the
// envelope shape, and on codex-api/src/azure.rs's ResponseItem variants
// for the ID-extraction shape the payload patcher needs. Response items
// are treated as an opaque structural type here rather than a full tagged
// union: the complete Response item JSON schema is explicitly out of
// scope, per spec.md's non-goals.
package aoaiclient

import "encoding/json"

// CreateResponseRequest is the body sent to POST /responses. Extra
// carries any forward-compatible fields the caller sets that this struct
// doesn't model explicitly, flattened back into the top level on encode.
type CreateResponseRequest struct {
	Model            string          `json:"model"`
	Instructions     string          `json:"instructions,omitempty"`
	Input            []ResponseItem  `json:"input,omitempty"`
	Tools            []json.RawMessage `json:"tools,omitempty"`
	ToolChoice       json.RawMessage `json:"tool_choice,omitempty"`
	ParallelToolCalls bool           `json:"parallel_tool_calls,omitempty"`
	Reasoning        json.RawMessage `json:"reasoning,omitempty"`
	Store            *bool           `json:"store,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	Include          []string        `json:"include,omitempty"`
	PromptCacheKey   string          `json:"prompt_cache_key,omitempty"`
	Text             json.RawMessage `json:"text,omitempty"`
	Extra            map[string]json.RawMessage `json:"-"`
}

// MarshalJSON encodes the request, flattening Extra's keys into the
// top-level object so forward-compatible fields pass through untouched.
func (r CreateResponseRequest) MarshalJSON() ([]byte, error) {
	type alias CreateResponseRequest
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// ResponseItem is a single element of a request's input array or a
// response's output array. Type and ID carry enough structure for the
// payload patcher and chain-break handling; Raw preserves everything else
// for forwarding verbatim.
type ResponseItem struct {
	Type string
	ID   string
	Raw  json.RawMessage
}

// itemID implements itemIdentifiable. Every item type the Responses API
// echoes back server-side (message, reasoning, web_search_call,
// function_call, local_shell_call, custom_tool_call) carries an ID worth
// attaching; anything else has none.
func (it ResponseItem) itemID() (string, bool) {
	if it.ID == "" {
		return "", false
	}
	switch it.Type {
	case "reasoning", "message", "web_search_call", "function_call", "local_shell_call", "custom_tool_call":
		return it.ID, true
	default:
		return "", false
	}
}

// MarshalJSON re-serializes Raw with Type/ID kept in sync, so round-trip
// encoding doesn't silently drop the accessor fields' edits.
func (it ResponseItem) MarshalJSON() ([]byte, error) {
	if len(it.Raw) == 0 {
		return json.Marshal(map[string]any{"type": it.Type, "id": it.ID})
	}
	var obj map[string]any
	if err := json.Unmarshal(it.Raw, &obj); err != nil {
		return it.Raw, nil
	}
	if it.Type != "" {
		obj["type"] = it.Type
	}
	if it.ID != "" {
		obj["id"] = it.ID
	}
	return json.Marshal(obj)
}

// UnmarshalJSON extracts type/id for ID-extraction purposes while
// keeping the full object in Raw for passthrough.
func (it *ResponseItem) UnmarshalJSON(data []byte) error {
	var shape struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	it.Type = shape.Type
	it.ID = shape.ID
	it.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Response is the body returned by the Responses API, and by GetResponse
// when re-fetching a stored response. Extra carries any additional fields
// the API returns that aren't modeled explicitly (including, after
// GetResponse inlines it, "azure_openai_usage_header").
type Response struct {
	ID        string                     `json:"id"`
	Object    string                     `json:"object"`
	CreatedAt int64                      `json:"created_at"`
	Model     string                     `json:"model"`
	Output    []ResponseItem             `json:"output,omitempty"`
	Error     json.RawMessage            `json:"error,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON captures Response's known fields plus anything else the
// API returned, so later code (e.g. inlining the azure-openai-usage
// header) can add to Extra without losing server-sent extras.
func (r *Response) UnmarshalJSON(data []byte) error {
	type alias Response
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Response(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]bool{"id": true, "object": true, "created_at": true, "model": true, "output": true, "error": true}
	r.Extra = map[string]json.RawMessage{}
	for k, v := range raw {
		if !known[k] {
			r.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON flattens Extra back into the top level, matching the
// original's flatten-on-encode behavior.
func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ResponseInputItemsList is the body returned by
// GET /responses/{id}/input_items.
type ResponseInputItemsList struct {
	Data  []ResponseItem             `json:"data"`
	Extra map[string]json.RawMessage `json:"-"`
}

// TokenUsage is the actual usage an API response reports, used to
// reconcile a pre-charged token-bucket estimate against reality.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}
