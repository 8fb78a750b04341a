package ap2

import (
	"bytes"
	"encoding/json"
)

// Canonicalize produces a deterministic JSON encoding of v: object keys
// sorted, no insignificant whitespace, UTF-8, numerals preserved
// verbatim. Two structurally equal values always canonicalize to the
// same bytes, which is what makes the detached signature verifiable.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	// Round-trip through interface{} so maps re-marshal with sorted
	// keys. UseNumber keeps integer cents exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var norm interface{}
	if err := dec.Decode(&norm); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
