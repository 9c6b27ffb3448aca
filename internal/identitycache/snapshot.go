package identitycache

import (
	"time"

	"tapday/internal/registrar"
	"tapday/pkg/domain"
)

// Entry is the identity known for one address. Nil fields are unknown; a
// field is never an empty string.
type Entry struct {
	Address string
	Name    *string
	Avatar  *string
	URL     *string
	FID     *string
}

// HasProfile reports whether the entry carries a profile link.
func (e Entry) HasProfile() bool {
	return e.URL != nil || e.FID != nil
}

// Snapshot is an immutable address index built from one registrar listing.
type Snapshot struct {
	names   map[string]string
	avatars map[string]string
	urls    map[string]string
	fids    map[string]string
	builtAt time.Time
	records int
}

// NewSnapshot indexes records by canonical owner address. Records without
// an owner are skipped; later records win over earlier ones for one owner.
func NewSnapshot(records []registrar.Subname, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		names:   make(map[string]string, len(records)),
		avatars: make(map[string]string),
		urls:    make(map[string]string),
		fids:    make(map[string]string),
		builtAt: builtAt,
		records: len(records),
	}
	for _, rec := range records {
		owner := domain.CanonicalAddress(rec.Owner)
		if owner == "" {
			continue
		}
		if rec.FullName != "" {
			s.names[owner] = rec.FullName
		}
		putNonEmpty(s.avatars, owner, rec.Text("avatar"))
		putNonEmpty(s.urls, owner, rec.Text("url"))
		putNonEmpty(s.fids, owner, rec.Text("fid"))
	}
	return s
}

func putNonEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// Get returns the entry for address, echoing address as given. A nil
// snapshot knows nothing.
func (s *Snapshot) Get(address string) Entry {
	e := Entry{Address: address}
	if s == nil {
		return e
	}
	key := domain.CanonicalAddress(address)
	e.Name = lookup(s.names, key)
	e.Avatar = lookup(s.avatars, key)
	e.URL = lookup(s.urls, key)
	e.FID = lookup(s.fids, key)
	return e
}

func lookup(m map[string]string, key string) *string {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Len is the number of addresses with a name.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}
