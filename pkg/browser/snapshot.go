package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// SnapshotNode is one element in the distilled structural tree of a page.
type SnapshotNode struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*SnapshotNode   `json:"children,omitempty"`
}

const (
	maxSnapshotDepth = 12
	maxSnapshotNodes = 500
	maxSnapshotText  = 200
)

// snapshotAttrs are the attributes worth keeping for element targeting.
var snapshotAttrs = map[string]bool{
	"id":          true,
	"name":        true,
	"class":       true,
	"href":        true,
	"type":        true,
	"placeholder": true,
	"value":       true,
	"role":        true,
	"aria-label":  true,
	"alt":         true,
	"title":       true,
}

// skippedSnapshotTags are elements that carry no structure worth reporting.
var skippedSnapshotTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"meta":     true,
	"link":     true,
	"head":     true,
	"svg":      true,
	"path":     true,
	"iframe":   true,
	"template": true,
}

// Snapshot returns a distilled structural tree of the page as indented JSON.
// The raw HTML is reduced to element nodes carrying tag, targeting attributes,
// and trimmed text, capped in depth and node count.
func (h *Handle) Snapshot(pageKey string) (string, error) {
	page, err := h.page(pageKey)
	if err != nil {
		return "", err
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	root, err := DistillHTML(content)
	if err != nil {
		return "", err
	}

	jsonBytes, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(jsonBytes), nil
}

// DistillHTML parses raw HTML and reduces it to a structural tree of element
// nodes with targeting attributes and trimmed text.
func DistillHTML(rawHTML string) (*SnapshotNode, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	budget := maxSnapshotNodes
	root := distillNode(doc, 0, &budget)
	if root == nil {
		root = &SnapshotNode{Tag: "html"}
	}
	return root, nil
}

// distillNode converts one HTML node into a SnapshotNode, recursing into
// children until the depth or node budget runs out.
func distillNode(n *html.Node, depth int, budget *int) *SnapshotNode {
	if *budget <= 0 || depth > maxSnapshotDepth {
		return nil
	}

	switch n.Type {
	case html.DocumentNode:
		// Descend through the document wrapper without consuming budget.
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if node := distillNode(child, depth, budget); node != nil {
				return node
			}
		}
		return nil

	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedSnapshotTags[tag] {
			return nil
		}

		*budget--
		node := &SnapshotNode{Tag: tag}

		for _, attr := range n.Attr {
			if snapshotAttrs[strings.ToLower(attr.Key)] && attr.Val != "" {
				if node.Attrs == nil {
					node.Attrs = make(map[string]string)
				}
				node.Attrs[strings.ToLower(attr.Key)] = attr.Val
			}
		}

		var text strings.Builder
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case html.TextNode:
				if trimmed := strings.TrimSpace(child.Data); trimmed != "" {
					if text.Len() > 0 {
						text.WriteString(" ")
					}
					text.WriteString(trimmed)
				}
			case html.ElementNode:
				if childNode := distillNode(child, depth+1, budget); childNode != nil {
					node.Children = append(node.Children, childNode)
				}
			}
		}

		node.Text = truncateText(text.String(), maxSnapshotText)
		return node

	default:
		return nil
	}
}

// truncateText caps text at maxLen characters, marking the cut.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
