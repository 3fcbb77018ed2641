// patch.go
// --------
// The payload patcher: after a request body has been serialized to JSON,
// Azure's Responses API needs each input item to carry an explicit "id"
// matching the in-memory item it came from, so a later turn can chain off
// it. Grounded on codex-api/src/azure.rs::attach_item_ids_to_json /
// extract_item_id.
package aoaiclient

import "fmt"

// itemIdentifiable is satisfied by any ResponseItem-shaped value the
// caller can extract a stable ID from. types.go's ResponseItem implements
// it; Reasoning items always have an ID, the rest only when the item was
// itself created server-side and echoed back (Message, WebSearchCall,
// FunctionCall, LocalShellCall, CustomToolCall).
type itemIdentifiable interface {
	itemID() (id string, ok bool)
}

// AttachItemIDs patches payload's "input" array in place, inserting an
// "id" field into each JSON object that corresponds to an original item
// carrying one. If "input" is absent or not an array, this is a silent
// no-op: not every request shape uses the input array.
//
// originalItems must be in the same order and have the same length as
// the serialized "input" array — that invariant is what lets index i in
// one line up with index i in the other. A mismatch means a filtering or
// reordering bug upstream that would silently break Azure's response
// chaining, so it is treated as a hard failure rather than patched
// around.
func AttachItemIDs(payload map[string]any, originalItems []ResponseItem) error {
	raw, ok := payload["input"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	if len(items) != len(originalItems) {
		return fmt.Errorf(
			"attach item ids: length mismatch - serialized %d items but have %d original items; this indicates a filtering/reordering bug that will break Azure chaining",
			len(items), len(originalItems),
		)
	}

	for i, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := originalItems[i].itemID()
		if !ok || id == "" {
			continue
		}
		obj["id"] = id
	}
	return nil
}
