package webhook

import "encoding/json"

// extractor pulls the assistant text out of one known response shape.
type extractor func(v interface{}) (string, bool)

// responseExtractors are tried in order; the first match wins.
var responseExtractors = []extractor{
	contentBlockText,
	responseField,
	bareString,
}

// ExtractResponseText normalizes the chat webhook response into a single
// string. Accepted shapes, by priority: {"content":[{"text":...}]},
// {"response":...} and a bare JSON string. Anything else yields "".
func ExtractResponseText(body []byte) string {
	var v interface{}
	if err := json.Unmarshal(unwrapFirst(body), &v); err != nil {
		return ""
	}
	for _, extract := range responseExtractors {
		if text, ok := extract(v); ok {
			return text
		}
	}
	return ""
}

// contentBlockText matches {"content":[{"text":"..."}]}, taking the first
// block that carries text.
func contentBlockText(v interface{}) (string, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return "", false
	}
	blocks, ok := obj["content"].([]interface{})
	if !ok {
		return "", false
	}
	for _, b := range blocks {
		block, ok := b.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := block["text"].(string); ok {
			return text, true
		}
	}
	return "", false
}

func responseField(v interface{}) (string, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return "", false
	}
	text, ok := obj["response"].(string)
	return text, ok
}

func bareString(v interface{}) (string, bool) {
	text, ok := v.(string)
	return text, ok
}
