package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/specvalidate/internal/model"
)

var (
	// ErrMissing is returned when the processor exited 0 but wrote no file.
	ErrMissing = errors.New("generated artifact not found")

	// ErrEmpty is returned when the artifact has no content.
	ErrEmpty = errors.New("generated artifact is empty")

	// ErrNotHTML is returned when the artifact contains no markup at all.
	ErrNotHTML = errors.New("generated artifact is not HTML")
)

// Summary is what Parse extracts from an HTML document.
type Summary struct {
	// Title is the trimmed text of the first <title> element.
	Title string

	// Links are the href values of <a> elements, in document order.
	Links []string

	// IDs are the id attributes in the document, used to resolve fragment links.
	IDs map[string]bool
}

// ExternalLinks returns the links that are absolute http(s) URLs.
func (s *Summary) ExternalLinks() []string {
	external := make([]string, 0, len(s.Links))
	for _, link := range s.Links {
		if isExternal(link) {
			external = append(external, link)
		}
	}
	return external
}

// BrokenFragments returns same-document fragment links ("#id") whose target
// id does not exist.
func (s *Summary) BrokenFragments() []string {
	var broken []string
	for _, link := range s.Links {
		if !strings.HasPrefix(link, "#") || len(link) == 1 {
			continue
		}
		if !s.IDs[link[1:]] {
			broken = append(broken, link)
		}
	}
	return broken
}

// Inspect reads the artifact at path and returns its model description.
func Inspect(path string) (*model.Artifact, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path is the artifact we asked the processor to write
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, abs)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, abs)
	}
	if !bytes.ContainsRune(trimmed, '<') {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, abs)
	}

	summary, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	return &model.Artifact{
		Path:              abs,
		Title:             summary.Title,
		LinkCount:         len(summary.Links),
		ExternalLinkCount: len(summary.ExternalLinks()),
		BrokenFragments:   summary.BrokenFragments(),
	}, nil
}

// Parse walks an HTML document and collects its title, links and ids.
func Parse(r io.Reader) (*Summary, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Links: make([]string, 0),
		IDs:   make(map[string]bool),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				summary.IDs[id] = true
			}
			switch n.Data {
			case "title":
				if summary.Title == "" {
					summary.Title = strings.TrimSpace(textContent(n))
				}
			case "a":
				if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
					summary.Links = append(summary.Links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return summary, nil
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func isExternal(link string) bool {
	lower := strings.ToLower(link)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
