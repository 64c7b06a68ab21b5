package domain

import "time"

type NotebookID string

type SourceID string

// Notebook is a summary row from the notebook listing.
type Notebook struct {
	ID         NotebookID
	Title      string
	Sources    []SourceRef
	IsOwned    bool
	IsShared   bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// SourceRef is the compact id+title pair embedded in notebook summaries.
type SourceRef struct {
	ID    SourceID
	Title string
}

// Source is a fully described notebook source.
type Source struct {
	ID       SourceID
	Title    string
	TypeCode int
	TypeName string
	URL      string
}

// SourceContent is the flattened text of a source plus its metadata.
type SourceContent struct {
	Title     string
	TypeName  string
	URL       string
	Content   string
	CharCount int
}

// AddedSource describes a source after an add call. Confirmed is false when
// the call timed out client-side: large sources can still complete on the
// server after we stop waiting.
type AddedSource struct {
	ID        SourceID
	Title     string
	Confirmed bool
}

// SourceTypeNames maps the service's numeric source type codes to readable
// names. Unknown codes render as "unknown".
var SourceTypeNames = map[int]string{
	1:  "google_docs",
	2:  "google_slides_sheets",
	3:  "pdf",
	4:  "pasted_text",
	5:  "web_page",
	8:  "generated_text",
	9:  "youtube",
	11: "uploaded_file",
	13: "image",
	14: "word_doc",
}

// SourceTypeName resolves a type code, defaulting to "unknown".
func SourceTypeName(code int) string {
	if name, ok := SourceTypeNames[code]; ok {
		return name
	}
	return "unknown"
}
