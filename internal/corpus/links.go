package corpus

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mikequentel/sutraparser/internal/model"
)

var (
	reDocHref = regexp.MustCompile(`^\.\./htmljw/\d.*\.htm$`)
	reBuTitle = regexp.MustCompile(`^\[\s*(.*?)\s*\]\s*(.*)`)
)

// IsDocumentHref reports whether href points into the numbered document directory.
func IsDocumentHref(href string) bool {
	return reDocHref.MatchString(href)
}

// ExtractLinks returns the document links of one index page in document order.
// A page without matching anchors yields an empty slice.
func ExtractLinks(indexPath string) ([]model.LinkRecord, error) {
	doc, err := loadDocument(indexPath)
	if err != nil {
		return nil, err
	}
	return extractLinks(doc.Selection), nil
}

func extractLinks(root *goquery.Selection) []model.LinkRecord {
	links := []model.LinkRecord{}
	for _, group := range documentAnchors(root) {
		links = append(links, linkRecord(group))
	}
	return links
}

// documentAnchors returns the matching anchors in document order, grouping
// consecutive anchors that share an href. The HTML5 tree builder splits an
// <a> wrapping block content inside a <p> into several clones; each group is
// one anchor as written in the source.
func documentAnchors(root *goquery.Selection) [][]*goquery.Selection {
	var groups [][]*goquery.Selection
	prev := ""
	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := getAttr(a, "href")
		if !IsDocumentHref(href) {
			return
		}
		if len(groups) > 0 && href == prev {
			groups[len(groups)-1] = append(groups[len(groups)-1], a)
			return
		}
		groups = append(groups, []*goquery.Selection{a})
		prev = href
	})
	return groups
}

func linkRecord(group []*goquery.Selection) model.LinkRecord {
	href := getAttr(group[0], "href")
	split := len(group) > 1

	full := groupText(group, "h4", split)
	bu, title := splitBuTitle(full)

	var author, volume string
	if dleft := groupFind(group, "div.dleft", split); dleft != nil {
		author, volume = splitAuthorVolume(strippedText(dleft))
	}

	name := full
	if name == "" {
		for _, a := range group {
			name += strippedText(a)
		}
	}

	return model.LinkRecord{
		ID:     IDFromHref(href),
		Name:   name,
		Href:   href,
		Bu:     bu,
		Title:  title,
		Author: author,
		Volume: volume,
	}
}

// groupFind returns the first element matching selector inside the anchors
// of group. For a split anchor the clones sit inside the elements they were
// cut from, so enclosing matches count too.
func groupFind(group []*goquery.Selection, selector string, split bool) *goquery.Selection {
	for _, a := range group {
		if m := a.Find(selector).First(); m.Length() > 0 {
			return m
		}
		if split {
			if m := a.Closest(selector); m.Length() > 0 {
				return m
			}
		}
	}
	return nil
}

func groupText(group []*goquery.Selection, selector string, split bool) string {
	if m := groupFind(group, selector, split); m != nil {
		return strippedText(m)
	}
	return ""
}

// splitBuTitle splits "[category] title". Without brackets the whole string is the title.
func splitBuTitle(s string) (bu, title string) {
	m := reBuTitle.FindStringSubmatch(s)
	if m == nil {
		return "", s
	}
	return m[1], m[2]
}

// splitAuthorVolume splits "author.volume" on the first dot. Everything after
// that dot is the volume, so "龙树.百卷.续" keeps "百卷.续" rather than dropping
// the last part.
func splitAuthorVolume(s string) (author, volume string) {
	parts := strings.SplitN(s, ".", 2)
	author = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		volume = strings.TrimSpace(parts[1])
	}
	return author, volume
}
