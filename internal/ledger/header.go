package ledger

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known frontmatter keys owned by the pipeline core. Every other key
// belongs to upstream tools and is preserved verbatim on rewrite.
const (
	KeyStatus      = "status"
	KeySourceID    = "source_id"
	KeyError       = "error"
	KeyErrorCode   = "error_code"
	KeyFailedAt    = "failed_at"
	KeyRetryAfter  = "retry_after"
	KeyChannel     = "channel"
	KeyTitle       = "title"
	KeyPublishedAt = "published_at"
	KeyVideoID     = "video_id"
	KeyWordCount   = "word_count"
)

// Header is the ordered frontmatter mapping for one content file. Values are
// kept as raw YAML nodes so keys this core does not understand survive a
// read-merge-write cycle byte-equivalent.
type Header struct {
	keys   []string
	values map[string]*yaml.Node
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: make(map[string]*yaml.Node)}
}

// Len reports the number of keys present.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Keys returns the keys in insertion order.
func (h *Header) Keys() []string {
	if h == nil {
		return nil
	}
	cp := make([]string, len(h.keys))
	copy(cp, h.keys)
	return cp
}

// Has reports whether a key is present, even with a null value.
func (h *Header) Has(key string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[key]
	return ok
}

// Node returns the raw YAML node for a key.
func (h *Header) Node(key string) (*yaml.Node, bool) {
	if h == nil {
		return nil, false
	}
	node, ok := h.values[key]
	return node, ok
}

// GetString returns the scalar string value for a key, or "" when the key is
// absent, null, or not a scalar.
func (h *Header) GetString(key string) string {
	node, ok := h.Node(key)
	if !ok || node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return node.Value
}

// GetInt returns the integer value for a key if it decodes as one.
func (h *Header) GetInt(key string) (int, bool) {
	node, ok := h.Node(key)
	if !ok || node == nil {
		return 0, false
	}
	var value int
	if err := node.Decode(&value); err != nil {
		return 0, false
	}
	return value, true
}

// GetStringList returns the sequence value for a key if it decodes as a
// string list.
func (h *Header) GetStringList(key string) []string {
	node, ok := h.Node(key)
	if !ok || node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	var values []string
	if err := node.Decode(&values); err != nil {
		return nil
	}
	return values
}

// Set stores a value under key, encoding it as YAML. Existing keys keep their
// position; new keys append. A nil value stores an explicit YAML null rather
// than deleting the key.
func (h *Header) Set(key string, value any) error {
	node := new(yaml.Node)
	if value == nil {
		node.Kind = yaml.ScalarNode
		node.Tag = "!!null"
		node.Value = "null"
	} else if err := node.Encode(value); err != nil {
		return fmt.Errorf("encode header value for %q: %w", key, err)
	}
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = node
	return nil
}

// Clone returns a deep-enough copy: the key order is independent, node
// pointers are shared (nodes are never mutated in place).
func (h *Header) Clone() *Header {
	if h == nil {
		return NewHeader()
	}
	clone := &Header{
		keys:   make([]string, len(h.keys)),
		values: make(map[string]*yaml.Node, len(h.values)),
	}
	copy(clone.keys, h.keys)
	for key, node := range h.values {
		clone.values[key] = node
	}
	return clone
}

// Status returns the parsed pipeline status. Unrecognized status strings
// report ok=false with the raw value available through GetString.
func (h *Header) Status() (Status, bool) {
	return ParseStatus(h.GetString(KeyStatus))
}

// SourceID returns the external identifier recorded after a successful
// upload, or "" when none is present.
func (h *Header) SourceID() string {
	return h.GetString(KeySourceID)
}

// ErrorInfo captures the failure record persisted alongside status=failed.
// All three fields are written together by the state manager.
type ErrorInfo struct {
	Message  string
	Code     string
	FailedAt time.Time
}

// Error returns the failure record if the header carries one.
func (h *Header) Error() *ErrorInfo {
	if !h.Has(KeyError) {
		return nil
	}
	info := &ErrorInfo{
		Message: h.GetString(KeyError),
		Code:    h.GetString(KeyErrorCode),
	}
	if raw := h.GetString(KeyFailedAt); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			info.FailedAt = parsed
		}
	}
	return info
}

func (h *Header) mappingNode() *yaml.Node {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range h.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		mapping.Content = append(mapping.Content, keyNode, h.values[key])
	}
	return mapping
}

func headerFromMapping(mapping *yaml.Node) (*Header, error) {
	header := NewHeader()
	if mapping == nil {
		return header, nil
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter root is %s, expected a mapping", kindName(mapping.Kind))
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valueNode := mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("frontmatter key at position %d is not a scalar", i/2)
		}
		key := keyNode.Value
		if _, exists := header.values[key]; !exists {
			header.keys = append(header.keys, key)
		}
		header.values[key] = valueNode
	}
	return header, nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
