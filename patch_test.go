package aoaiclient

import "testing"

func TestAttachItemIDsPatchesJSON(t *testing.T) {
	payload := map[string]any{
		"input": []any{
			map[string]any{"type": "reasoning", "content": "x"},
			map[string]any{"type": "message", "role": "user"},
		},
	}
	originals := []ResponseItem{
		{Type: "reasoning", ID: "rs_1"},
		{Type: "message", ID: ""}, // no id on the second item
	}

	if err := AttachItemIDs(payload, originals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := payload["input"].([]any)
	first := items[0].(map[string]any)
	if first["id"] != "rs_1" {
		t.Fatalf("expected id to be patched in, got %+v", first)
	}
	second := items[1].(map[string]any)
	if _, ok := second["id"]; ok {
		t.Fatalf("expected no id patched for item without one, got %+v", second)
	}
}

func TestAttachItemIDsNoopWhenInputMissing(t *testing.T) {
	payload := map[string]any{"model": "gpt-4o"}
	if err := AttachItemIDs(payload, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestAttachItemIDsFailsOnLengthMismatch(t *testing.T) {
	payload := map[string]any{
		"input": []any{
			map[string]any{"type": "message"},
			map[string]any{"type": "message"},
			map[string]any{"type": "message"},
		},
	}
	originals := []ResponseItem{{Type: "message", ID: "a"}, {Type: "message", ID: "b"}}

	if err := AttachItemIDs(payload, originals); err == nil {
		t.Fatal("expected length-mismatch error")
	}
}
