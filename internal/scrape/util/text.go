package util

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanText collapses whitespace runs and non-breaking spaces into single
// spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// HTMLToText flattens an HTML fragment into newline-separated text lines,
// one per non-empty text node, skipping script and style contents. Boards
// ship descriptions as markup; the dataset stores plain text.
func HTMLToText(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return CleanText(fragment)
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := CleanText(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(lines, "\n")
}
