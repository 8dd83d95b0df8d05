package badger

import (
	"github.com/marmos91/dittosync/pkg/model"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the two record
// collections into separate namespaces:
//
// Data Type             Prefix       Key Format             Value Type
// ======================================================================
// Shared File Records   "file:"      file:<uuid>            FileRecord (JSON)
// Local Registry        "registry:"  registry:<uuid>        LocalRegistryEntry (JSON)
//
// File ids are time-ordered UUIDs minted by devices without coordination,
// so point lookups are O(1) and full enumeration is a prefix scan. Path
// alias checks scan the registry prefix linearly; registries are sized in
// thousands of entries, so a secondary path index is not warranted yet.

const (
	// prefixFileRecord is the key prefix for shared file records
	prefixFileRecord = "file:"

	// prefixRegistry is the key prefix for local registry entries
	prefixRegistry = "registry:"
)

// keyFileRecord generates the key for a shared file record.
func keyFileRecord(fileID model.FileID) []byte {
	return []byte(prefixFileRecord + fileID.String())
}

// keyRegistry generates the key for a local registry entry.
func keyRegistry(fileID model.FileID) []byte {
	return []byte(prefixRegistry + fileID.String())
}
