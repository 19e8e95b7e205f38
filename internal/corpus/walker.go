package corpus

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikequentel/sutraparser/internal/model"
)

// IndexGlob matches the index pages of a corpus directory.
const IndexGlob = "ml*.htm"

var ErrBaseDirMissing = errors.New("corpus base directory not found")

// Options controls one corpus pass.
type Options struct {
	BaseDir string
	// TestMode caps both the index pages and the links per page at TestLimit.
	TestMode  bool
	TestLimit int
}

// Result holds the two aggregates of a pass.
type Result struct {
	Indexes map[string]model.IndexPage       // keyed by index file name, eg: "ml01.htm"
	Books   map[string]*model.ParsedDocument // keyed by document id, last write wins
	// Collisions lists document ids that were parsed more than once.
	Collisions []string
	Skipped    int
}

// Walk scans every index page under opts.BaseDir and parses each linked
// document. Only a missing base directory or an unreadable index page aborts
// the pass; documents that cannot be parsed are skipped.
func Walk(opts Options) (*Result, error) {
	fi, err := os.Stat(opts.BaseDir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBaseDirMissing, opts.BaseDir)
	}

	indexFiles, err := filepath.Glob(filepath.Join(opts.BaseDir, IndexGlob))
	if err != nil {
		return nil, fmt.Errorf("glob index pages: %w", err)
	}
	if opts.TestMode {
		indexFiles = truncate(indexFiles, opts.TestLimit)
	}

	res := &Result{
		Indexes: make(map[string]model.IndexPage),
		Books:   make(map[string]*model.ParsedDocument),
	}

	for _, indexFile := range indexFiles {
		page, err := readIndexPage(indexFile)
		if err != nil {
			return nil, err
		}
		if opts.TestMode {
			page.Bus = truncate(page.Bus, opts.TestLimit)
		}
		res.Indexes[filepath.Base(indexFile)] = page
		log.Printf("[corpus] %s: %d links", filepath.Base(indexFile), len(page.Bus))

		for _, link := range page.Bus {
			if link.Href == "" {
				continue
			}
			pd := ParseDocument(link.Href, opts.BaseDir)
			if pd == nil {
				res.Skipped++
				continue
			}
			if _, ok := res.Books[link.ID]; ok {
				log.Printf("[corpus] warning: document %s linked again from %s, replacing earlier result", link.ID, filepath.Base(indexFile))
				res.Collisions = append(res.Collisions, link.ID)
			}
			res.Books[link.ID] = pd
		}
	}

	return res, nil
}

func readIndexPage(indexFile string) (model.IndexPage, error) {
	doc, err := loadDocument(indexFile)
	if err != nil {
		return model.IndexPage{}, fmt.Errorf("read index page: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(indexFile), filepath.Ext(indexFile))
	return model.IndexPage{
		ID:   strings.TrimPrefix(stem, "ml"),
		Name: firstText(doc.Selection, "h3.title"),
		Bus:  extractLinks(doc.Selection),
	}, nil
}

func truncate[T any](s []T, limit int) []T {
	if limit >= 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
