package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittosync/pkg/model"
)

// Values are stored as JSON. Records are small and the schema evolves
// with the product, so debuggability and field-by-field stability win
// over binary compactness here.

// encodeFileRecord serializes a shared file record to JSON bytes.
func encodeFileRecord(record *model.FileRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return data, nil
}

// decodeFileRecord deserializes a shared file record from JSON bytes.
func decodeFileRecord(data []byte) (*model.FileRecord, error) {
	var record model.FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode file record: %w", err)
	}
	return &record, nil
}

// encodeRegistryEntry serializes a local registry entry to JSON bytes.
func encodeRegistryEntry(entry *model.LocalRegistryEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry entry: %w", err)
	}
	return data, nil
}

// decodeRegistryEntry deserializes a local registry entry from JSON bytes.
func decodeRegistryEntry(data []byte) (*model.LocalRegistryEntry, error) {
	var entry model.LocalRegistryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode registry entry: %w", err)
	}
	return &entry, nil
}
