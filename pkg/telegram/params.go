package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrParamsNotObject is returned by ParseParams for JSON that is valid but
// not an object, including null.
var ErrParamsNotObject = errors.New("expected a JSON object")

// ParseParams decodes a JSON object into Params. Numbers stay json.Number so
// large chat IDs keep their precision. The result is never nil.
func ParseParams(data []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if !atEOF(dec) {
		return nil, errors.New("unexpected data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrParamsNotObject
	}
	return Params(obj), nil
}

// atEOF reports whether dec has nothing left but whitespace.
func atEOF(dec *json.Decoder) bool {
	_, err := dec.Token()
	return errors.Is(err, io.EOF)
}
