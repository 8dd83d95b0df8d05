// Package badger implements the metadata store on BadgerDB for
// deployments where records must survive restarts.
//
// Every public operation runs as one BadgerDB transaction, so the
// validate-or-revert contract comes from transaction aborts: a failed
// validation returns an error from the update closure and nothing is
// committed.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittosync/pkg/model"
	"github.com/marmos91/dittosync/pkg/store"
)

// BadgerMetadataStore implements store.MetadataStore using BadgerDB.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store itself holds no
// additional locks. Callers still serialize conflicting mutations of the
// same file id among themselves.
type BadgerMetadataStore struct {
	// db is the BadgerDB database handle (thread-safe, uses internal MVCC)
	db *badger.DB
}

// BadgerMetadataStoreConfig configures the BadgerDB metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// BadgerOptions allows customization of BadgerDB behavior.
	// If nil, sensible defaults for a metadata workload are used.
	BadgerOptions *badger.Options
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB database at the
// configured path and returns a store ready for concurrent use.
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		// Records are small JSON documents; compression overhead is not
		// worth it.
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerMetadataStore{db: db}, nil
}

// Close closes the BadgerDB database, flushing pending data to disk.
// After calling Close the store must not be used.
func (s *BadgerMetadataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// txnGetFileRecord loads a file record inside a transaction.
func txnGetFileRecord(txn *badger.Txn, fileID model.FileID) (*model.FileRecord, error) {
	item, err := txn.Get(keyFileRecord(fileID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NotFound(fileID)
	}
	if err != nil {
		return nil, err
	}

	var record *model.FileRecord
	err = item.Value(func(val []byte) error {
		record, err = decodeFileRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// txnPutFileRecord stores a file record inside a transaction.
func txnPutFileRecord(txn *badger.Txn, record *model.FileRecord) error {
	data, err := encodeFileRecord(record)
	if err != nil {
		return err
	}
	return txn.Set(keyFileRecord(record.FileID), data)
}

// txnGetRegistryEntry loads a registry entry inside a transaction.
func txnGetRegistryEntry(txn *badger.Txn, fileID model.FileID) (*model.LocalRegistryEntry, error) {
	item, err := txn.Get(keyRegistry(fileID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NotFound(fileID)
	}
	if err != nil {
		return nil, err
	}

	var entry *model.LocalRegistryEntry
	err = item.Value(func(val []byte) error {
		entry, err = decodeRegistryEntry(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// txnPutRegistryEntry stores a registry entry inside a transaction.
func txnPutRegistryEntry(txn *badger.Txn, entry *model.LocalRegistryEntry) error {
	data, err := encodeRegistryEntry(entry)
	if err != nil {
		return err
	}
	return txn.Set(keyRegistry(entry.FileID), data)
}

// UpsertFileRecord validates the record and replaces the stored one
// wholesale.
func (s *BadgerMetadataStore) UpsertFileRecord(ctx context.Context, record model.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := model.Validate(&record); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txnPutFileRecord(txn, &record)
	})
}

// UpsertRegistryEntry unconditionally replaces the registry entry.
func (s *BadgerMetadataStore) UpsertRegistryEntry(ctx context.Context, entry model.LocalRegistryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txnPutRegistryEntry(txn, &entry)
	})
}

// BindPath binds a path to a file identity, refusing to alias a path that
// any other file already claims (case-insensitive comparison). The alias
// check is a linear scan over the registry prefix.
func (s *BadgerMetadataStore) BindPath(ctx context.Context, fileID model.FileID, path string, writable bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRegistry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var other *model.LocalRegistryEntry
			err := it.Item().Value(func(val []byte) error {
				var decodeErr error
				other, decodeErr = decodeRegistryEntry(val)
				return decodeErr
			})
			if err != nil {
				return err
			}
			if other.FileID == fileID {
				continue
			}
			for _, binding := range other.Paths {
				if strings.EqualFold(binding.Path, path) {
					return store.PathAlreadyBound(fileID, other.FileID, path)
				}
			}
		}

		entry, err := txnGetRegistryEntry(txn, fileID)
		if err != nil {
			return err
		}

		now := time.Now()
		updated := false
		for i := range entry.Paths {
			if entry.Paths[i].Path == path {
				entry.Paths[i].LastSeenAt = now
				entry.Paths[i].Writable = writable
				updated = true
				break
			}
		}
		if !updated {
			entry.Paths = append(entry.Paths, model.PathBinding{
				Path:       path,
				LastSeenAt: now,
				Writable:   writable,
			})
		}
		return txnPutRegistryEntry(txn, entry)
	})
}

// UnbindPath removes bindings matching the path; identity remains intact.
func (s *BadgerMetadataStore) UnbindPath(ctx context.Context, fileID model.FileID, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := txnGetRegistryEntry(txn, fileID)
		if err != nil {
			return err
		}

		kept := entry.Paths[:0]
		for _, binding := range entry.Paths {
			if binding.Path != path {
				kept = append(kept, binding)
			}
		}
		entry.Paths = kept
		return txnPutRegistryEntry(txn, entry)
	})
}

// SetLocalPreferences applies the non-nil preference knobs independently.
func (s *BadgerMetadataStore) SetLocalPreferences(ctx context.Context, fileID model.FileID, update store.PreferenceUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := txnGetRegistryEntry(txn, fileID)
		if err != nil {
			return err
		}

		if update.Hydration != nil {
			entry.Hydration = *update.Hydration
		}
		if update.Consent != nil {
			entry.Consent = *update.Consent
		}
		if update.AutoLock != nil {
			entry.AutoLockPreference = *update.AutoLock
		}
		return txnPutRegistryEntry(txn, entry)
	})
}

// UpsertDeviceState replaces or appends the matching device state entry,
// re-validating the record before commit.
func (s *BadgerMetadataStore) UpsertDeviceState(ctx context.Context, fileID model.FileID, state model.DeviceFileState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		record, err := txnGetFileRecord(txn, fileID)
		if err != nil {
			return err
		}

		replaced := false
		for i := range record.DeviceStates {
			if record.DeviceStates[i].DeviceID == state.DeviceID {
				record.DeviceStates[i] = state
				replaced = true
				break
			}
		}
		if !replaced {
			record.DeviceStates = append(record.DeviceStates, state)
		}

		if err := model.Validate(record); err != nil {
			return err
		}
		return txnPutFileRecord(txn, record)
	})
}

// AppendVersion pushes the version, advances the head, re-validates, and
// advances an existing registry entry's local version id.
func (s *BadgerMetadataStore) AppendVersion(ctx context.Context, fileID model.FileID, versionID model.VersionID, version model.VersionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		record, err := txnGetFileRecord(txn, fileID)
		if err != nil {
			return err
		}

		record.Versions = append(record.Versions, version)
		record.HeadVersionID = versionID

		if err := model.Validate(record); err != nil {
			return err
		}
		if err := txnPutFileRecord(txn, record); err != nil {
			return err
		}

		entry, err := txnGetRegistryEntry(txn, fileID)
		if err != nil {
			var storeErr *store.StoreError
			if errors.As(err, &storeErr) && storeErr.Code == store.ErrNotFound {
				return nil
			}
			return err
		}
		id := versionID
		entry.LocalVersionID = &id
		return txnPutRegistryEntry(txn, entry)
	})
}

// SetLock replaces the lock field wholesale and re-validates.
func (s *BadgerMetadataStore) SetLock(ctx context.Context, fileID model.FileID, lock *model.LockRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		record, err := txnGetFileRecord(txn, fileID)
		if err != nil {
			return err
		}

		if lock != nil {
			l := *lock
			record.Lock = &l
		} else {
			record.Lock = nil
		}

		if err := model.Validate(record); err != nil {
			return err
		}
		return txnPutFileRecord(txn, record)
	})
}

// SetLocalError annotates the registry entry; shared state is untouched.
func (s *BadgerMetadataStore) SetLocalError(ctx context.Context, fileID model.FileID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := txnGetRegistryEntry(txn, fileID)
		if err != nil {
			return err
		}
		entry.LastError = message
		return txnPutRegistryEntry(txn, entry)
	})
}

// GetFileRecord returns a snapshot of the shared record.
func (s *BadgerMetadataStore) GetFileRecord(ctx context.Context, fileID model.FileID) (*model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *model.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var viewErr error
		record, viewErr = txnGetFileRecord(txn, fileID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRegistryEntry returns a snapshot of the registry entry.
func (s *BadgerMetadataStore) GetRegistryEntry(ctx context.Context, fileID model.FileID) (*model.LocalRegistryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry *model.LocalRegistryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		var viewErr error
		entry, viewErr = txnGetRegistryEntry(txn, fileID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListFileRecords enumerates all shared records via a prefix scan.
func (s *BadgerMetadataStore) ListFileRecords(ctx context.Context) ([]model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []model.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFileRecord)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record, decodeErr := decodeFileRecord(val)
				if decodeErr != nil {
					return decodeErr
				}
				records = append(records, *record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListRegistryEntries enumerates all registry entries via a prefix scan.
func (s *BadgerMetadataStore) ListRegistryEntries(ctx context.Context) ([]model.LocalRegistryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []model.LocalRegistryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRegistry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				entry, decodeErr := decodeRegistryEntry(val)
				if decodeErr != nil {
					return decodeErr
				}
				entries = append(entries, *entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
