package model

// LinkRecord is one document link found on an index page.
type LinkRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Href   string `json:"href"`
	Bu     string `json:"bu"` // category, eg: "大乘般若部"
	Title  string `json:"title"`
	Author string `json:"author"`
	Volume string `json:"volume"`
}

// IndexPage is the mls.json entry for one ml*.htm file.
type IndexPage struct {
	ID   string       `json:"id"` // file stem without the "ml" prefix
	Name string       `json:"name"`
	Bus  []LinkRecord `json:"bus"`
}

// LinkRef points at a neighbouring document. The zero value encodes as {}.
type LinkRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (r LinkRef) IsZero() bool { return r.ID == "" && r.Name == "" }

type DocumentMeta struct {
	ID     string  `json:"id"`
	Bu     string  `json:"bu"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	LastBu LinkRef `json:"last_bu"`
	NextBu LinkRef `json:"next_bu"`
}

type Chapter struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Paragraphs []string `json:"paragraphs"`
}

// Juan is a volume (scroll) of a document.
type Juan struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Chapters []Chapter `json:"chapters"`
}

// ParsedDocument is written as books/<id>.json.
type ParsedDocument struct {
	Meta  DocumentMeta `json:"meta"`
	Juans []Juan       `json:"juans"`
}
