package badger

import (
	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// Prefixed keys organize entry records and the directory index into separate
// namespaces inside one BadgerDB keyspace.
//
// Data Type        Prefix   Key Format                      Value Type
// ======================================================================
// Entry            "e:"     e:<uuid>                        entry (JSON)
// Children Index   "c:"     c:<parentUUID>:<childName>      childUUID (16 bytes)
// Root             "root"   root                            rootUUID (16 bytes)
//
// The parent of an entry is stored in the entry record itself, so an ancestor
// walk is one point lookup per level. Children are denormalized (one key per
// child) so a directory listing is a prefix scan over "c:<parentUUID>:".

const (
	// prefixEntry is the key prefix for entry records
	prefixEntry = "e:"

	// prefixChild is the key prefix for children mappings (parentUUID:name → childUUID)
	prefixChild = "c:"

	// keyRootName is the singleton key holding the root directory id
	keyRootName = "root"
)

// keyEntry generates a key for an entry record.
//
// Format: "e:<uuid>"
func keyEntry(id uuid.UUID) []byte {
	return []byte(prefixEntry + id.String())
}

// keyChild generates a key for a child entry in a directory.
//
// Format: "c:<parentUUID>:<childName>"
func keyChild(parentID uuid.UUID, childName string) []byte {
	return []byte(prefixChild + parentID.String() + ":" + childName)
}

// keyChildPrefix generates a key prefix for range scanning children.
//
// Format: "c:<parentUUID>:"
func keyChildPrefix(parentID uuid.UUID) []byte {
	return []byte(prefixChild + parentID.String() + ":")
}

// keyRoot returns the root singleton key.
func keyRoot() []byte {
	return []byte(keyRootName)
}
