package engine

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"regexp"
	"strings"
)

// extractionRoots are the root elements an extraction reply may use.
var extractionRoots = []string{"item", "profile", "behaviors", "events", "knowledge", "skills"}

// extracted is one candidate fact from an extraction reply.
type extracted struct {
	Content    string
	Categories []string
}

type xmlExtraction struct {
	Memories []struct {
		Content    string   `xml:"content"`
		Categories []string `xml:"categories>category"`
	} `xml:"memory"`
}

// parseExtraction pulls memory entries out of an extraction reply. The reply
// may surround the XML with prose or code fences. Malformed XML yields no
// entries.
func parseExtraction(reply string) []extracted {
	fragment := extractionFragment(reply)
	if fragment == "" {
		return nil
	}

	dec := xml.NewDecoder(strings.NewReader(fragment))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc xmlExtraction
	if err := dec.Decode(&doc); err != nil {
		return nil
	}

	var out []extracted
	for _, m := range doc.Memories {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}

		var cats []string
		seen := make(map[string]bool, len(m.Categories))
		for _, c := range m.Categories {
			name := strings.ToLower(strings.TrimSpace(c))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			cats = append(cats, name)
		}

		out = append(out, extracted{Content: content, Categories: cats})
	}
	return out
}

// extractionFragment returns the span from the first opening root tag to the
// last matching closing tag, trying roots in order.
func extractionFragment(reply string) string {
	for _, root := range extractionRoots {
		start := indexStartTag(reply, root)
		if start < 0 {
			continue
		}
		closing := "</" + root + ">"
		end := strings.LastIndex(reply, closing)
		if end < start {
			continue
		}
		return reply[start : end+len(closing)]
	}
	return ""
}

func indexStartTag(s, name string) int {
	open := "<" + name
	offset := 0
	for {
		i := strings.Index(s[offset:], open)
		if i < 0 {
			return -1
		}
		i += offset
		next := i + len(open)
		if next < len(s) && (s[next] == '>' || s[next] == ' ' || s[next] == '\n' || s[next] == '\t' || s[next] == '\r') {
			return i
		}
		offset = next
	}
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// jsonBlob returns the JSON payload of a ranker reply: the first fenced
// block if any, else everything from the first brace or bracket.
func jsonBlob(reply string) string {
	if m := fencedJSON.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	if i := strings.IndexAny(reply, "{["); i >= 0 {
		return reply[i:]
	}
	return ""
}

// parseRankedIDs reads the id list under key from a ranker reply. It never
// fails: ids that are not strings, not in valid, or repeated are dropped and
// the result is truncated to k.
func parseRankedIDs(reply, key string, valid func(string) bool, k int) []string {
	out := []string{}
	if k <= 0 {
		return out
	}

	blob := jsonBlob(reply)
	if blob == "" {
		return out
	}

	// Decode only the first value so trailing prose is ignored.
	var raw any
	if err := json.NewDecoder(bytes.NewReader([]byte(blob))).Decode(&raw); err != nil {
		return out
	}

	var list []any
	switch v := raw.(type) {
	case map[string]any:
		list, _ = v[key].([]any)
	case []any:
		list = v
	}

	seen := make(map[string]bool, len(list))
	for _, el := range list {
		id, ok := el.(string)
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		if id == "" || seen[id] || !valid(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == k {
			break
		}
	}
	return out
}

// stripMarkdownFence removes code fences a model may wrap a summary in.
func stripMarkdownFence(s string) string {
	s = strings.ReplaceAll(s, "```markdown", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
