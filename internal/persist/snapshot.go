package persist

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/data"
	"github.com/l1jgo/worldbuild/internal/transform"
)

var ErrChecksumMismatch = errors.New("persist: snapshot checksum mismatch")

// Value is one encoded component or tag.
type Value struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EntityRecord is one entity in a snapshot. Ref numbers entities from 1 in
// snapshot order; Parent is the parent's Ref, or 0 for roots.
type EntityRecord struct {
	Ref        int     `json:"ref"`
	Parent     int     `json:"parent,omitempty"`
	Tags       []Value `json:"tags,omitempty"`
	Components []Value `json:"components,omitempty"`
}

// Snapshot is a portable copy of a world. Entity ids are not kept; parent
// links are stored as refs and re-linked on Restore. Components without a
// registered kind (derived state such as LocalToWorld) are left out.
type Snapshot struct {
	ID       uuid.UUID
	Name     string
	TakenAt  time.Time
	Entities []EntityRecord
	Checksum []byte
}

// TakeSnapshot encodes every live entity in w.
func TakeSnapshot(w *ecs.World, kinds *data.Kinds, name string) (*Snapshot, error) {
	ids := w.Entities()
	refs := make(map[ecs.EntityID]int, len(ids))
	for i, id := range ids {
		refs[id] = i + 1
	}

	records := make([]EntityRecord, 0, len(ids))
	for _, id := range ids {
		rec := EntityRecord{Ref: refs[id]}
		if p, ok := ecs.Get[transform.Parent](w, id); ok {
			rec.Parent = refs[p.Entity]
		}
		var err error
		if rec.Tags, err = encodeAll(kinds, w.Tags(id)); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
		if rec.Components, err = encodeAll(kinds, w.Components(id)); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}
		records = append(records, rec)
	}

	s := &Snapshot{
		ID:       uuid.New(),
		Name:     name,
		TakenAt:  time.Now().UTC(),
		Entities: records,
	}
	sum, err := s.checksum()
	if err != nil {
		return nil, err
	}
	s.Checksum = sum
	return s, nil
}

func encodeAll(kinds *data.Kinds, values []any) ([]Value, error) {
	var out []Value
	for _, v := range values {
		if _, ok := kinds.Name(v); !ok {
			continue
		}
		name, raw, err := kinds.Encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{Kind: name, Data: raw})
	}
	return out, nil
}

// checksum is blake2b-256 over the name and the JSON encoding of the entities.
func (s *Snapshot) checksum() ([]byte, error) {
	body, err := json.Marshal(s.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(s.Name))
	h.Write([]byte{0})
	h.Write(body)
	return h.Sum(nil), nil
}

// Verify recomputes the checksum and compares it with the stored one.
func (s *Snapshot) Verify() error {
	sum, err := s.checksum()
	if err != nil {
		return err
	}
	if !bytes.Equal(sum, s.Checksum) {
		return fmt.Errorf("scene %s: %w", s.ID, ErrChecksumMismatch)
	}
	return nil
}

// Restore verifies s and re-creates its entities in w, returning the new ids
// in snapshot order. Parent links are re-pointed at the new ids.
func Restore(w *ecs.World, kinds *data.Kinds, s *Snapshot) ([]ecs.EntityID, error) {
	if err := s.Verify(); err != nil {
		return nil, err
	}

	ids := make([]ecs.EntityID, len(s.Entities))
	for i, rec := range s.Entities {
		tags, err := decodeAll(kinds, rec.Tags)
		if err != nil {
			return ids[:i], fmt.Errorf("restore ref %d: %w", rec.Ref, err)
		}
		comps, err := decodeAll(kinds, rec.Components)
		if err != nil {
			return ids[:i], fmt.Errorf("restore ref %d: %w", rec.Ref, err)
		}
		created, err := w.Insert(ecs.Tags(tags...), ecs.Bundle(comps...))
		if err != nil {
			return ids[:i], fmt.Errorf("restore ref %d: %w", rec.Ref, err)
		}
		ids[i] = created[0]
	}

	for i, rec := range s.Entities {
		if rec.Parent == 0 {
			continue
		}
		if rec.Parent < 1 || rec.Parent > len(ids) {
			return ids, fmt.Errorf("restore ref %d: parent ref %d out of range", rec.Ref, rec.Parent)
		}
		if err := ecs.Set(w, ids[i], transform.Parent{Entity: ids[rec.Parent-1]}); err != nil {
			return ids, fmt.Errorf("restore ref %d: %w", rec.Ref, err)
		}
	}
	return ids, nil
}

func decodeAll(kinds *data.Kinds, values []Value) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		d, err := kinds.DecodeJSON(v.Kind, v.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
