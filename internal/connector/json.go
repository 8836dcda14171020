package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"dataclean/internal/dataset"
)

// readJSON loads a record-oriented JSON file: an array of flat objects.
// Column order follows first appearance across records; keys absent from
// a record become nulls.
func readJSON(path string) (*dataset.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	var names []string
	seen := make(map[string]bool)
	records := make([]map[string]interface{}, 0, len(raw))
	for i, msg := range raw {
		keys, rec, err := decodeRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptData, i, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
		records = append(records, rec)
	}

	t, err := dataset.New(names...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	cells := make([]dataset.Value, len(names))
	for _, rec := range records {
		for i, name := range names {
			v, ok := rec[name]
			if !ok {
				cells[i] = dataset.Null()
				continue
			}
			cells[i] = fromJSONValue(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
	}
	return t, nil
}

// decodeRecord parses one object, returning its keys in document order.
// A plain map would lose the order and with it the column layout.
func decodeRecord(msg json.RawMessage) ([]string, map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("record is not an object")
	}

	var keys []string
	rec := make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := keyTok.(string)
		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		rec[key] = val
	}
	return keys, rec, nil
}

func fromJSONValue(v interface{}) dataset.Value {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return dataset.Int(i)
		}
		if f, err := n.Float64(); err == nil {
			return dataset.Float(f)
		}
		return dataset.String(n.String())
	}
	return dataset.FromInterface(v)
}

// writeJSON writes the table as an array of flat objects, keys in column
// order.
func writeJSON(t *dataset.Table, path string) error {
	var buf bytes.Buffer
	buf.WriteByte('[')

	names := t.ColumnNames()
	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c := range cols {
			if c > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(names[c])
			if err != nil {
				return fmt.Errorf("encode json key: %w", err)
			}
			val, err := json.Marshal(cols[c].Values[i].Interface())
			if err != nil {
				return fmt.Errorf("encode json value: %w", err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
