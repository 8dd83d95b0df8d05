package model

// Clone returns a deep copy of the record. Stores hand out clones so that
// callers can never mutate shared state through a read accessor, and
// mutate clones so that a failed validation leaves the stored record
// untouched.
func (r *FileRecord) Clone() *FileRecord {
	out := *r

	out.Versions = make([]VersionRecord, len(r.Versions))
	for i, v := range r.Versions {
		out.Versions[i] = *cloneVersion(&v)
	}

	if r.Lock != nil {
		lock := *r.Lock
		if r.Lock.ExpiresAt != nil {
			exp := *r.Lock.ExpiresAt
			lock.ExpiresAt = &exp
		}
		out.Lock = &lock
	}

	out.DeviceStates = make([]DeviceFileState, len(r.DeviceStates))
	for i, d := range r.DeviceStates {
		out.DeviceStates[i] = d
		if d.KnownHeadVersionID != nil {
			id := *d.KnownHeadVersionID
			out.DeviceStates[i].KnownHeadVersionID = &id
		}
	}

	return &out
}

// Clone returns a deep copy of the registry entry.
func (e *LocalRegistryEntry) Clone() *LocalRegistryEntry {
	out := *e

	out.Paths = make([]PathBinding, len(e.Paths))
	copy(out.Paths, e.Paths)

	if e.LocalVersionID != nil {
		id := *e.LocalVersionID
		out.LocalVersionID = &id
	}

	return &out
}

func cloneVersion(v *VersionRecord) *VersionRecord {
	out := *v
	if v.ParentVersionID != nil {
		id := *v.ParentVersionID
		out.ParentVersionID = &id
	}
	out.Chunks = make([]ChunkRef, len(v.Chunks))
	copy(out.Chunks, v.Chunks)
	return &out
}
