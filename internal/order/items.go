package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Line is one requested item and its quantity.
type Line struct {
	Item     string
	Quantity int
}

// Items is an ordered item->quantity mapping. It encodes as a JSON object
// whose keys keep submission order.
type Items []Line

// Clone returns a copy that shares no backing array with it.
func (it Items) Clone() Items {
	if it == nil {
		return nil
	}
	out := make(Items, len(it))
	copy(out, it)
	return out
}

// String renders the items as "pizza=5 soda=2".
func (it Items) String() string {
	parts := make([]string, 0, len(it))
	for _, l := range it {
		parts = append(parts, l.Item+"="+strconv.Itoa(l.Quantity))
	}
	return strings.Join(parts, " ")
}

func (it Items) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l.Item)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(l.Quantity))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (it *Items) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("items: expected object, got %v", tok)
	}

	out := Items{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("items: expected key, got %v", tok)
		}
		var qty int
		if err := dec.Decode(&qty); err != nil {
			return fmt.Errorf("items: quantity of %s: %w", key, err)
		}
		out = append(out, Line{Item: key, Quantity: qty})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*it = out
	return nil
}
