package content

import (
	"bytes"
	"encoding/json"
)

// NodeKind is the closed set of rich-text node kinds the analyzer knows
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindText
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindQuote
	KindBlock
)

// Node is one element of a rich-text tree. Block nodes carry their block
// payload in Fields.
type Node struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Tag      string          `json:"tag,omitempty"`
	Children []Node          `json:"children,omitempty"`
	Fields   json.RawMessage `json:"fields,omitempty"`
}

// Kind maps the node's type tag onto a NodeKind
func (n Node) Kind() NodeKind {
	switch n.Type {
	case "text":
		return KindText
	case "heading":
		return KindHeading
	case "paragraph":
		return KindParagraph
	case "list":
		return KindList
	case "listitem", "listItem":
		return KindListItem
	case "quote":
		return KindQuote
	case "block":
		return KindBlock
	default:
		return KindUnknown
	}
}

// RichText is a tree-structured rich-text document
type RichText struct {
	Root Node `json:"root"`
}

// UnmarshalJSON accepts both {"root": {...}} and a bare root node
func (r *RichText) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Root *Node `json:"root"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Root != nil {
		r.Root = *wrapped.Root
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.Root = Node{}
		return nil
	}
	return json.Unmarshal(data, &r.Root)
}

// Block is a typed layout unit. The payload is kept raw and decoded by the
// extractor matching its block type.
type Block struct {
	BlockType string
	raw       json.RawMessage
}

// NewBlock builds a block of blockType from its fields
func NewBlock(blockType string, fields map[string]any) Block {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["blockType"] = blockType
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return Block{BlockType: blockType, raw: raw}
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var head struct {
		BlockType string `json:"blockType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.BlockType = head.BlockType
	b.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.raw) == 0 {
		return json.Marshal(map[string]string{"blockType": b.BlockType})
	}
	return b.raw, nil
}

// Decode unmarshals the block payload into v
func (b Block) Decode(v any) error {
	if len(b.raw) == 0 {
		return nil
	}
	return json.Unmarshal(b.raw, v)
}
