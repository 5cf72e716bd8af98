package audit

import "encoding/json"

// JSONFormat serializes events as single-line JSON objects.
type JSONFormat struct{}

func (JSONFormat) Format(entry *Event) ([]byte, error) {
	out, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (JSONFormat) Name() string {
	return "json"
}
