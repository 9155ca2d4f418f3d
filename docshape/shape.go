// Package docshape converts documents between their storage and runtime
// representations.
//
// The remote document store cannot persist nested arrays, so array-valued
// structures inside editor documents (table rows, question sets, answer
// options) are stored as indexed objects keyed "row0", "row1", ... and
// converted back to arrays when loaded. Both directions are total: a
// document already in the target shape passes through unchanged.
package docshape

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Document is an editor document: an ordered list of typed blocks.
type Document struct {
	Time    int64   `json:"time,omitempty"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version,omitempty"`
}

// Block is a single editor block. Data is left raw because each block type
// owns its own schema.
type Block struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Block types whose data embeds array-valued structures.
const (
	BlockTable     = "table"
	BlockQuestions = "questions"
)

// Revert converts a document from storage shape to runtime shape in place.
func Revert(doc *Document) error {
	return convert(doc, false)
}

// Normalize converts a document from runtime shape to storage shape in place.
func Normalize(doc *Document) error {
	return convert(doc, true)
}

func convert(doc *Document, toStorage bool) error {
	if doc == nil {
		return nil
	}
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		var err error
		switch b.Type {
		case BlockTable:
			b.Data, err = convertTable(b.Data, toStorage)
		case BlockQuestions:
			b.Data, err = convertQuestions(b.Data, toStorage)
		}
		if err != nil {
			return fmt.Errorf("block %d (%s): %w", i, b.Type, err)
		}
	}
	return nil
}

// convertTable rewrites the "content" field of a table block between
// [][]string and {"rowN": []string}.
func convertTable(data json.RawMessage, toStorage bool) (json.RawMessage, error) {
	var table map[string]json.RawMessage
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode table data: %w", err)
	}
	content, ok := table["content"]
	if !ok {
		return data, nil
	}
	converted, changed, err := convertIndexed(content, "row", toStorage)
	if err != nil {
		return nil, fmt.Errorf("table content: %w", err)
	}
	if !changed {
		return data, nil
	}
	table["content"] = converted
	return json.Marshal(table)
}

// convertQuestions rewrites the "questions" field of a questions block
// between an array of questions and {"questionN": ...}. Each question's
// "options" field is converted the same way with an "option" prefix.
func convertQuestions(data json.RawMessage, toStorage bool) (json.RawMessage, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode questions data: %w", err)
	}
	raw, ok := wrapper["questions"]
	if !ok {
		return data, nil
	}

	questions, _, err := convertIndexed(raw, "question", false)
	if err != nil {
		return nil, fmt.Errorf("question set: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(questions, &items); err != nil {
		return nil, fmt.Errorf("decode question set: %w", err)
	}
	for i, item := range items {
		var q map[string]json.RawMessage
		if err := json.Unmarshal(item, &q); err != nil {
			return nil, fmt.Errorf("decode question %d: %w", i, err)
		}
		opts, ok := q["options"]
		if !ok {
			continue
		}
		converted, changed, err := convertIndexed(opts, "option", toStorage)
		if err != nil {
			return nil, fmt.Errorf("question %d options: %w", i, err)
		}
		if !changed {
			continue
		}
		q["options"] = converted
		items[i], err = json.Marshal(q)
		if err != nil {
			return nil, err
		}
	}

	rebuilt, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	if toStorage {
		rebuilt, _, err = convertIndexed(rebuilt, "question", true)
		if err != nil {
			return nil, fmt.Errorf("question set: %w", err)
		}
	}
	wrapper["questions"] = rebuilt
	return json.Marshal(wrapper)
}

// convertIndexed converts between a JSON array and an object keyed
// "<prefix>0".."<prefix>N". The reported bool is false when the value was
// already in the target shape.
func convertIndexed(raw json.RawMessage, prefix string, toStorage bool) (json.RawMessage, bool, error) {
	trimmed := strings.TrimLeft(string(raw), " \t\r\n")
	if trimmed == "" || trimmed == "null" {
		return raw, false, nil
	}

	switch {
	case trimmed[0] == '[' && toStorage:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false, err
		}
		obj := make(map[string]json.RawMessage, len(items))
		for i, item := range items {
			obj[prefix+strconv.Itoa(i)] = item
		}
		out, err := json.Marshal(obj)
		return out, true, err

	case trimmed[0] == '{' && !toStorage:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false, err
		}
		indices := make([]int, 0, len(obj))
		byIndex := make(map[int]json.RawMessage, len(obj))
		for k, v := range obj {
			if !strings.HasPrefix(k, prefix) {
				return nil, false, fmt.Errorf("unexpected key %q", k)
			}
			n, err := strconv.Atoi(k[len(prefix):])
			if err != nil {
				return nil, false, fmt.Errorf("unexpected key %q", k)
			}
			indices = append(indices, n)
			byIndex[n] = v
		}
		sort.Ints(indices)
		items := make([]json.RawMessage, 0, len(indices))
		for _, n := range indices {
			items = append(items, byIndex[n])
		}
		out, err := json.Marshal(items)
		return out, true, err
	}

	// Already in the target shape.
	return raw, false, nil
}
