package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LoadCorpus reads a corpus CSV into an ordered entry sequence. The file
// must carry a header row naming at least entry_index and text; timestamp
// and context_tag columns are optional. Rows are deduplicated by index
// (identical duplicates collapse, conflicting ones fail) and returned
// sorted ascending by index.
func LoadCorpus(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Reason: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer f.Close()
	return ReadCorpus(f)
}

// ReadCorpus is LoadCorpus over an already-open reader.
func ReadCorpus(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &LoadError{Line: 1, Reason: fmt.Sprintf("read header: %v", err)}
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idxCol, ok := col["entry_index"]
	if !ok {
		return nil, &LoadError{Line: 1, Reason: "missing entry_index column"}
	}
	textCol, ok := col["text"]
	if !ok {
		return nil, &LoadError{Line: 1, Reason: "missing text column"}
	}
	tsCol, hasTS := col["timestamp"]
	tagCol, hasTag := col["context_tag"]

	byIndex := map[int]Entry{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &LoadError{Line: line, Reason: fmt.Sprintf("read row: %v", err)}
		}
		if len(rec) <= idxCol || len(rec) <= textCol {
			return nil, &LoadError{Line: line, Reason: "short row"}
		}

		index, err := strconv.Atoi(strings.TrimSpace(rec[idxCol]))
		if err != nil {
			return nil, &LoadError{Line: line, Reason: fmt.Sprintf("bad entry_index %q", rec[idxCol])}
		}
		text := rec[textCol]
		if strings.TrimSpace(text) == "" {
			return nil, &LoadError{Line: line, Index: index, Reason: "empty text"}
		}

		e := Entry{
			Index:     index,
			Text:      text,
			WordCount: len(strings.Fields(text)),
		}
		if hasTS && len(rec) > tsCol && strings.TrimSpace(rec[tsCol]) != "" {
			ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[tsCol]))
			if err != nil {
				return nil, &LoadError{Line: line, Index: index, Reason: fmt.Sprintf("bad timestamp %q", rec[tsCol])}
			}
			e.Timestamp = &ts
		}
		if hasTag && len(rec) > tagCol {
			tag, err := parseContextTag(rec[tagCol])
			if err != nil {
				return nil, &LoadError{Line: line, Index: index, Reason: err.Error()}
			}
			e.ContextTag = tag
		}

		if prev, ok := byIndex[index]; ok {
			if prev.Text != e.Text {
				return nil, &LoadError{Line: line, Index: index, Reason: "duplicate entry_index with conflicting text"}
			}
			continue
		}
		byIndex[index] = e
	}

	entries := make([]Entry, 0, len(byIndex))
	for _, e := range byIndex {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

func parseContextTag(s string) (ContextTag, error) {
	switch ContextTag(strings.ToLower(strings.TrimSpace(s))) {
	case ContextNone:
		return ContextNone, nil
	case ContextTherapeutic:
		return ContextTherapeutic, nil
	case ContextBanter:
		return ContextBanter, nil
	}
	return ContextNone, fmt.Errorf("unknown context_tag %q", s)
}
