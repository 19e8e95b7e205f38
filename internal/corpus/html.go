package corpus

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// loadDocument reads an HTML file into a goquery document. Files that are not
// valid UTF-8 are decoded using the charset declared in the page (older pages
// of the corpus are GB2312/GBK).
func loadDocument(filePath string) (*goquery.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r, err = charset.NewReader(r, "text/html")
		if err != nil {
			return nil, fmt.Errorf("detect charset %s: %w", filePath, err)
		}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", filePath, err)
	}
	return doc, nil
}

// IDFromHref strips directory and extension: "../htmljw/0777.htm" -> "0777".
func IDFromHref(href string) string {
	base := path.Base(strings.ReplaceAll(href, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// strippedText concatenates every text fragment under the first node of s,
// each fragment trimmed on its own. "<h4> [经] <b> 心经 </b></h4>" -> "[经]心经".
func strippedText(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.TrimSpace(n.Data))
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(s.Get(0))
	return b.String()
}

func getAttr(s *goquery.Selection, key string) string {
	if v, ok := s.Attr(key); ok {
		return v
	}
	return ""
}

// firstText returns the stripped text of the first match of selector, or "".
func firstText(s *goquery.Selection, selector string) string {
	return strippedText(s.Find(selector).First())
}
