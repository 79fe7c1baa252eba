package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` as is.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// JoinedText collects every text node under `node`, trims each one, drops the
// empty ones and joins the rest with `sep`.
func JoinedText(node *html.Node, sep string) string {
	var parts []string
	collectText(node, &parts)
	return strings.Join(parts, sep)
}

func collectText(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		text := NormalizeWhitespace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, out)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeWhitespace strips non-printable runes, collapses runs of whitespace
// (including nbsp) into a single space and trims the ends.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
