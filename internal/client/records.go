package client

import (
	"strings"
	"time"

	"github.com/bnema/notebooklm-cli/internal/domain"
	"github.com/bnema/notebooklm-cli/internal/protocol"
)

// Result records are positional arrays. One accessor per record shape lives
// here so the index arithmetic never leaks into the operation methods.

// notebookList walks a listing result. The rows sit in an array at index 0,
// except on older responses where the result is the row array itself.
func notebookList(result any) []domain.Notebook {
	rows, ok := protocol.AsArray(result)
	if !ok {
		return nil
	}
	if inner := protocol.ArrayAt(rows, 0); inner != nil {
		rows = inner
	}

	var notebooks []domain.Notebook
	for _, raw := range rows {
		if nb, ok := notebookRecord(raw); ok {
			notebooks = append(notebooks, nb)
		}
	}
	return notebooks
}

// notebookRecord reads one notebook row: title at 0, source refs at 1, id at
// 2, ownership and timestamps in the metadata block at 5.
func notebookRecord(raw any) (domain.Notebook, bool) {
	row, ok := protocol.AsArray(raw)
	if !ok || len(row) < 3 {
		return domain.Notebook{}, false
	}

	id, ok := protocol.AsString(protocol.At(row, 2))
	if !ok || id == "" {
		return domain.Notebook{}, false
	}

	nb := domain.Notebook{
		ID:      domain.NotebookID(id),
		Title:   protocol.StringAt(row, 0, "Untitled"),
		IsOwned: true,
	}

	for _, rawRef := range protocol.ArrayAt(row, 1) {
		if ref, ok := sourceRefRecord(rawRef); ok {
			nb.Sources = append(nb.Sources, ref)
		}
	}

	if meta := protocol.ArrayAt(row, 5); len(meta) > 0 {
		nb.IsOwned = protocol.IntAt(meta, 0, 0) == 1
		nb.IsShared = truthy(protocol.At(meta, 1))
		nb.ModifiedAt = timestampAt(meta, 5)
		nb.CreatedAt = timestampAt(meta, 8)
	}

	return nb, true
}

// sourceRefRecord reads the compact source pair: [[id], title].
func sourceRefRecord(raw any) (domain.SourceRef, bool) {
	row, ok := protocol.AsArray(raw)
	if !ok || len(row) < 2 {
		return domain.SourceRef{}, false
	}

	id, ok := protocol.AsString(protocol.At(protocol.ArrayAt(row, 0), 0))
	if !ok {
		// Older rows carry the id bare rather than wrapped.
		if id, ok = protocol.AsString(protocol.At(row, 0)); !ok {
			return domain.SourceRef{}, false
		}
	}

	return domain.SourceRef{
		ID:    domain.SourceID(id),
		Title: protocol.StringAt(row, 1, "Untitled"),
	}, true
}

// notebookDetail unwraps a single-notebook result down to the row itself.
func notebookDetail(result any) []any {
	row, ok := protocol.AsArray(result)
	if !ok {
		return nil
	}
	if inner := protocol.ArrayAt(row, 0); inner != nil {
		return inner
	}
	return row
}

// sourceRecords reads the full source rows out of a notebook detail: id at
// [0][0], title at 1, metadata at 2 with the type code at 4 and the URL at
// [7][0].
func sourceRecords(result any) []domain.Source {
	row := notebookDetail(result)

	var sources []domain.Source
	for _, raw := range protocol.ArrayAt(row, 1) {
		src, ok := protocol.AsArray(raw)
		if !ok || len(src) < 3 {
			continue
		}

		id, ok := protocol.AsString(protocol.At(protocol.ArrayAt(src, 0), 0))
		if !ok {
			continue
		}

		meta := protocol.ArrayAt(src, 2)
		typeCode := protocol.IntAt(meta, 4, 0)
		sources = append(sources, domain.Source{
			ID:       domain.SourceID(id),
			Title:    protocol.StringAt(src, 1, "Untitled"),
			TypeCode: typeCode,
			TypeName: domain.SourceTypeName(typeCode),
			URL:      protocol.StringAt(protocol.ArrayAt(meta, 7), 0, ""),
		})
	}
	return sources
}

// sourceIDs collects just the ids from a notebook detail, for queries that
// default to every source.
func sourceIDs(result any) []domain.SourceID {
	row := notebookDetail(result)

	var ids []domain.SourceID
	for _, raw := range protocol.ArrayAt(row, 1) {
		src, ok := protocol.AsArray(raw)
		if !ok {
			continue
		}
		if id, ok := protocol.AsString(protocol.At(protocol.ArrayAt(src, 0), 0)); ok {
			ids = append(ids, domain.SourceID(id))
		}
	}
	return ids
}

// sourceContentRecord reads a source content result: the metadata block at 0
// (title at 1, type/url in the nested metadata at 2), the content blocks
// under [3][0]. Content is every non-empty string in the blocks, depth-first,
// joined by blank lines.
func sourceContentRecord(result any) domain.SourceContent {
	row, ok := protocol.AsArray(result)
	if !ok {
		return domain.SourceContent{}
	}

	var content domain.SourceContent

	if metaBlock := protocol.ArrayAt(row, 0); metaBlock != nil {
		content.Title = protocol.StringAt(metaBlock, 1, "")
		if meta := protocol.ArrayAt(metaBlock, 2); meta != nil {
			content.TypeName = domain.SourceTypeName(protocol.IntAt(meta, 4, 0))
			content.URL = protocol.StringAt(protocol.ArrayAt(meta, 7), 0, "")
		}
	}

	var parts []string
	for _, block := range protocol.ArrayAt(protocol.ArrayAt(row, 3), 0) {
		if nested, ok := protocol.AsArray(block); ok {
			parts = append(parts, flattenStrings(nested)...)
		}
	}
	content.Content = strings.Join(parts, "\n\n")
	content.CharCount = len(content.Content)

	return content
}

// addedSourceRecord reads an add-source result: the new source row sits at
// [0][0], shaped like a source ref.
func addedSourceRecord(result any, defaultTitle string) (domain.AddedSource, bool) {
	src := protocol.ArrayAt(protocol.ArrayAt(anyAsArray(result), 0), 0)
	if src == nil {
		return domain.AddedSource{}, false
	}

	id, ok := protocol.AsString(protocol.At(protocol.ArrayAt(src, 0), 0))
	if !ok {
		return domain.AddedSource{}, false
	}

	return domain.AddedSource{
		ID:        domain.SourceID(id),
		Title:     protocol.StringAt(src, 1, defaultTitle),
		Confirmed: true,
	}, true
}

func anyAsArray(v any) []any {
	arr, _ := protocol.AsArray(v)
	return arr
}

// timestampAt reads the [seconds, nanos] pair at index i.
func timestampAt(arr []any, i int) time.Time {
	pair := protocol.ArrayAt(arr, i)
	seconds, ok := protocol.AsInt(protocol.At(pair, 0))
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

func flattenStrings(data []any) []string {
	var texts []string
	for _, item := range data {
		switch t := item.(type) {
		case string:
			if t != "" {
				texts = append(texts, t)
			}
		case []any:
			texts = append(texts, flattenStrings(t)...)
		}
	}
	return texts
}
