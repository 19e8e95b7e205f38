package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/mikequentel/sutraparser/internal/model"
)

// BooksDir is the subdirectory of the output directory holding books/<id>.json.
const BooksDir = "books"

// EnsureDir creates path (and parents) if it does not exist yet.
func EnsureDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	log.Printf("[corpus] created directory %s", path)
	return nil
}

// SaveJSON writes v as indented UTF-8 JSON. Non-ASCII text is written as is.
// The file is written next to path and renamed into place, so a failed write
// never leaves a partial file at path.
func SaveJSON(path string, v any) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err = enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadDocument reads back a books/<id>.json file.
func LoadDocument(path string) (*model.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pd model.ParsedDocument
	if err := json.Unmarshal(data, &pd); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &pd, nil
}

// SaveBooks writes one file per document into outputDir/books. A failed write
// is logged and the remaining documents are still written. It returns the
// number of files written.
func SaveBooks(outputDir string, books map[string]*model.ParsedDocument) (int, error) {
	dir := filepath.Join(outputDir, BooksDir)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	written := 0
	for _, id := range ids {
		path := filepath.Join(dir, id+".json")
		if err := SaveJSON(path, books[id]); err != nil {
			log.Printf("[corpus] failed to save %s: %v", path, err)
			continue
		}
		written++
	}
	return written, nil
}
