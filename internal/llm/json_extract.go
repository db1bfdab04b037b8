package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlockRe strips a ```...``` or ```json...``` code fence, the same
// pattern the Binance trading bot's stripMarkdownCodeBlock uses to clean
// up LLM responses before parsing them as JSON.
var fencedBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```\\s*$")

// ExtractJSONObject tolerates bare JSON objects, fenced code blocks, and
// leading/trailing whitespace (§4.E). It returns the raw map and true on
// success, or nil/false if the text does not contain a parseable JSON
// object.
func ExtractJSONObject(text string) (map[string]interface{}, bool) {
	candidate := strings.TrimSpace(text)

	if m := fencedBlockRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}

	// Fall back to the outermost brace pair, tolerating leading/trailing
	// prose the model sometimes adds around the JSON payload.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &obj); err == nil {
			return obj, true
		}
	}

	return nil, false
}
