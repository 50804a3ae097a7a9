package extract

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/mkaralis/storeforge/internal/types"
)

// Cleaner reduces raw page HTML to a compact content stream suitable for
// prompting, plus the list of images found on the page.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a new HTML cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	return &Cleaner{
		logger: logger.With("component", "cleaner"),
	}
}

// Clean parses the markup and returns the cleaned content stream and all
// img elements found. The parse is tolerant; Clean fails only when the
// input cannot be parsed at all.
func (c *Cleaner) Clean(rawHTML string) (string, []types.ScrapedImage, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", nil, &types.ExtractError{Err: fmt.Errorf("parse html: %w", err)}
	}

	images := collectImages(doc)

	var fragments []string
	emitContent(doc, &fragments)

	c.logger.Debug("html cleaned", "fragments", len(fragments), "images", len(images))
	return strings.Join(fragments, "\n"), images, nil
}

// collectImages gathers src/alt/width/height/class for every img element,
// before any pruning happens.
func collectImages(n *html.Node) []types.ScrapedImage {
	var images []types.ScrapedImage

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			src := attrValue(n, "src")
			if src != "" {
				images = append(images, types.ScrapedImage{
					URL:        src,
					Alt:        attrValue(n, "alt"),
					Width:      atoiOrZero(attrValue(n, "width")),
					Height:     atoiOrZero(attrValue(n, "height")),
					CSSClasses: attrValue(n, "class"),
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return images
}

// emitContent walks the tree depth-first, emitting trimmed non-empty
// text nodes verbatim and img elements re-serialized with only their
// essential attributes. Script and style subtrees are skipped entirely.
func emitContent(n *html.Node, fragments *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		case "img":
			if frag := serializeImg(n); frag != "" {
				*fragments = append(*fragments, frag)
			}
			return
		}
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*fragments = append(*fragments, text)
		}
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		emitContent(child, fragments)
	}
}

// essentialImgAttrs are the only attributes kept when re-serializing img
// elements; everything else (tracking params, event handlers) is dropped.
var essentialImgAttrs = []string{"src", "alt", "title", "width", "height"}

func serializeImg(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString("<img")
	for _, name := range essentialImgAttrs {
		if v := attrValue(n, name); v != "" {
			sb.WriteString(fmt.Sprintf(" %s=%q", name, v))
		}
	}
	sb.WriteString("/>")
	if sb.Len() == len("<img/>") {
		return ""
	}
	return sb.String()
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
