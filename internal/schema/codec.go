package schema

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid snapshot format: %s (must be 'json', 'yaml' or 'msgpack')", s)
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(s)
	}
	return fmt.Errorf("invalid snapshot format: %s", f)
}

// Decode reads a snapshot from r.
func Decode(r io.Reader, f Format) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&s)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&s)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&s)
	default:
		return nil, fmt.Errorf("invalid snapshot format: %s", f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s snapshot: %w", f, err)
	}
	return &s, nil
}
