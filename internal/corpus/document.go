package corpus

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mikequentel/sutraparser/internal/model"
)

// Navigation labels used when the footer carries a single link.
const (
	labelPrev = "上一部"
	labelNext = "下一部"
)

// ParseDocument resolves href against baseDir and rebuilds the
// book -> juan -> chapter -> paragraph tree of the page it points to.
// It returns nil when the file is missing or cannot be read; both cases are
// logged and never reported to the caller as errors.
func ParseDocument(href, baseDir string) *model.ParsedDocument {
	target := filepath.Clean(filepath.Join(baseDir, filepath.FromSlash(href)))

	fi, err := os.Stat(target)
	if err != nil || fi.IsDir() {
		log.Printf("[corpus] warning: file not found for href %q at path %q", href, target)
		return nil
	}

	doc, err := loadDocument(target)
	if err != nil {
		log.Printf("[corpus] error processing file %q: %v", target, err)
		return nil
	}
	return buildDocument(doc.Selection, IDFromHref(href))
}

func buildDocument(root *goquery.Selection, id string) *model.ParsedDocument {
	pd := &model.ParsedDocument{
		Meta: model.DocumentMeta{
			ID:     id,
			Bu:     firstText(root, "div.top-left"),
			Title:  firstText(root, "div.top-center"),
			Author: firstText(root, "div.top-right"),
		},
		Juans: []model.Juan{},
	}
	pd.Meta.LastBu, pd.Meta.NextBu = extractNavigation(root)

	container := root.Find("div.jwzw").First()
	if container.Length() == 0 {
		return pd
	}

	container.Find("div.jwbt-box").Each(func(_ int, box *goquery.Selection) {
		pd.Juans = append(pd.Juans, buildJuan(box, id))
	})
	return pd
}

func buildJuan(box *goquery.Selection, docID string) model.Juan {
	juan := model.Juan{Chapters: []model.Chapter{}}

	if head := box.Find("div.jwbt").First(); head.Length() > 0 {
		juan.ID, juan.Name = markerIDName(head)
	}

	// Paragraphs are always gathered from the juan block's siblings, so every
	// chapter of a multi-chapter juan ends up with the same sequence.
	// See DESIGN.md "sibling walk".
	paragraphs := siblingParagraphs(box)

	markers := box.Find("div.jwbtbm")
	if markers.Length() == 0 {
		log.Printf("[corpus] warning: no chapter markers in juan %q of %s, using a single chapter", juan.ID, docID)
		juan.Chapters = append(juan.Chapters, model.Chapter{
			ID:         strings.TrimSpace(getAttr(box.Find("a[name]").First(), "name")),
			Name:       "",
			Paragraphs: paragraphs,
		})
		return juan
	}

	markers.Each(func(_ int, m *goquery.Selection) {
		chID, chName := markerIDName(m)
		juan.Chapters = append(juan.Chapters, model.Chapter{
			ID:         chID,
			Name:       chName,
			Paragraphs: append([]string{}, paragraphs...),
		})
	})
	return juan
}

// markerIDName reads the anchor pair of a juan or chapter marker: the id from
// a named anchor, the display name from the linking anchor.
func markerIDName(marker *goquery.Selection) (id, name string) {
	id = strings.TrimSpace(getAttr(marker.Find("a[name]").First(), "name"))
	name = strippedText(marker.Find("a[href]").First())
	return id, name
}

// siblingParagraphs walks the element siblings following box up to the next
// juan block and collects the text of every <p>.
func siblingParagraphs(box *goquery.Selection) []string {
	out := []string{}
	box.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
		if sib.Is("div") && sib.HasClass("jwbt-box") {
			return false
		}
		if goquery.NodeName(sib) == "p" {
			out = append(out, strippedText(sib))
		}
		return true
	})
	return out
}

// extractNavigation classifies the footer links. One link is labelled by its
// text; two links are taken positionally; any other count yields nothing.
func extractNavigation(root *goquery.Selection) (prev, next model.LinkRef) {
	footer := root.Find("div.jw-bottom").First()
	if footer.Length() == 0 {
		return prev, next
	}
	anchors := footer.Find("a[href]")
	switch anchors.Length() {
	case 1:
		a := anchors.First()
		ref := linkRef(a)
		switch {
		case strings.Contains(ref.Name, labelPrev):
			prev = ref
		case strings.Contains(ref.Name, labelNext):
			next = ref
		}
	case 2:
		prev = linkRef(anchors.Eq(0))
		next = linkRef(anchors.Eq(1))
	}
	return prev, next
}

func linkRef(a *goquery.Selection) model.LinkRef {
	return model.LinkRef{
		ID:   IDFromHref(strings.TrimSpace(getAttr(a, "href"))),
		Name: strippedText(a),
	}
}
