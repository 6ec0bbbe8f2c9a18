package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/draftvcs/draft/pkg/filesystem"
)

// LoadAndUnmarshalJSON reads the file at the specified path and decodes it
// as JSON into value. It returns the underlying os.IsNotExist error
// unmodified so that callers can distinguish "repository object doesn't
// exist yet" from other failures.
func LoadAndUnmarshalJSON(path string, value interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("unable to load file: %w", err)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("unable to unmarshal data: %w", err)
	}
	return nil
}

// MarshalAndSaveJSON encodes value as pretty-printed, newline-terminated
// JSON and writes it to path atomically (temp file plus rename), matching
// the on-disk format used for every persistent record in the repository.
func MarshalAndSaveJSON(path string, value interface{}) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("unable to marshal data: %w", err)
	}
	if err := filesystem.WriteFileAtomic(path, buffer.Bytes(), 0600); err != nil {
		return fmt.Errorf("unable to write data: %w", err)
	}
	return nil
}

// MergeUnknownFields re-reads any fields present in the on-disk document at
// path but absent from the schema encoded in "known" (a JSON-tagged struct
// pointer), so that a read-modify-write cycle performed by an older or
// newer version of the engine doesn't silently drop fields it doesn't
// recognize. It returns a map suitable for passing to MarshalAndSaveJSON in
// place of the original struct.
func MergeUnknownFields(path string, known interface{}) (map[string]json.RawMessage, error) {
	raw := make(map[string]json.RawMessage)
	if existing, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(existing, &raw); err != nil {
			return nil, fmt.Errorf("unable to parse existing document: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("unable to read existing document: %w", err)
	}

	knownBytes, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal known fields: %w", err)
	}
	knownRaw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(knownBytes, &knownRaw); err != nil {
		return nil, fmt.Errorf("unable to re-parse known fields: %w", err)
	}
	for key, value := range knownRaw {
		raw[key] = value
	}
	return raw, nil
}
