package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

// TagSet is the tag half of the bulk-insert contract: tags shared by every
// entity a single Insert creates.
type TagSet interface {
	AttachTags(w *World, ids []EntityID) error
}

// ComponentSource is the component half of the bulk-insert contract. Len
// decides how many entities Insert creates; AttachComponents receives exactly
// that many ids.
type ComponentSource interface {
	Len() int
	AttachComponents(w *World, ids []EntityID) error
}

type tagList []any

// NoTags is the empty TagSet.
func NoTags() TagSet { return tagList(nil) }

// Tags builds a TagSet from tag values of registered tag types.
func Tags(values ...any) TagSet { return tagList(values) }

func (l tagList) AttachTags(w *World, ids []EntityID) error {
	var errs []error
	for _, v := range l {
		for _, id := range ids {
			if err := w.AddTag(id, v); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

type emptySource int

// Empty yields n entities with no components.
func Empty(n int) ComponentSource { return emptySource(n) }

func (n emptySource) Len() int                                { return int(n) }
func (emptySource) AttachComponents(*World, []EntityID) error { return nil }

type rows[A any] []A

// Rows yields one entity per value, each carrying that single component.
func Rows[A any](values ...A) ComponentSource { return rows[A](values) }

func (r rows[A]) Len() int { return len(r) }

func (r rows[A]) AttachComponents(w *World, ids []EntityID) error {
	s := Store[A](w)
	if s == nil {
		return fmt.Errorf("rows of %s: %w", reflect.TypeFor[A](), ErrUnknownComponent)
	}
	for i, id := range ids {
		s.Set(id, r[i])
	}
	return nil
}

// Row2 is one entity's worth of components for Rows2.
type Row2[A, B any] struct {
	First  A
	Second B
}

type rows2[A, B any] []Row2[A, B]

// Rows2 yields one entity per row, each carrying an A and a B.
func Rows2[A, B any](values ...Row2[A, B]) ComponentSource { return rows2[A, B](values) }

func (r rows2[A, B]) Len() int { return len(r) }

func (r rows2[A, B]) AttachComponents(w *World, ids []EntityID) error {
	sa, sb := Store[A](w), Store[B](w)
	if sa == nil {
		return fmt.Errorf("rows of %s: %w", reflect.TypeFor[A](), ErrUnknownComponent)
	}
	if sb == nil {
		return fmt.Errorf("rows of %s: %w", reflect.TypeFor[B](), ErrUnknownComponent)
	}
	for i, id := range ids {
		sa.Set(id, r[i].First)
		sb.Set(id, r[i].Second)
	}
	return nil
}

type bundles [][]any

// Bundle yields a single entity carrying all of values.
func Bundle(values ...any) ComponentSource { return bundles{values} }

// Bundles yields one entity per row; each row is that entity's components.
// Types are resolved at attach time, so rows may mix component types.
func Bundles(entities ...[]any) ComponentSource { return bundles(entities) }

func (b bundles) Len() int { return len(b) }

func (b bundles) AttachComponents(w *World, ids []EntityID) error {
	var errs []error
	for i, id := range ids {
		for _, c := range b[i] {
			if err := w.AddComponent(id, c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
