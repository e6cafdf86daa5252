package badger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// encodeEntry serializes an entry record. Path is derived, never stored.
func encodeEntry(entry *tree.Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry %s: %w", entry.ID, err)
	}
	return data, nil
}

// decodeEntry deserializes an entry record.
func decodeEntry(data []byte) (*tree.Entry, error) {
	var entry tree.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	return &entry, nil
}

// decodeID reads a 16-byte UUID value.
func decodeID(val []byte) (uuid.UUID, error) {
	var id uuid.UUID
	if len(val) != len(id) {
		return uuid.Nil, fmt.Errorf("invalid UUID length: %d", len(val))
	}
	copy(id[:], val)
	return id, nil
}
