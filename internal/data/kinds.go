package data

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKind   = errors.New("data: unknown kind")
	ErrDuplicateKind = errors.New("data: kind already registered")
)

// kind binds a name used in prefab files, scripts and snapshots to a Go type.
type kind struct {
	name     string
	typ      reflect.Type
	tag      bool
	fromYAML func(*yaml.Node) (any, error)
	fromJSON func([]byte) (any, error)
}

// Kinds maps case-insensitive names to component and tag types.
type Kinds struct {
	byName map[string]*kind
	byType map[reflect.Type]*kind
}

func NewKinds() *Kinds {
	return &Kinds{
		byName: make(map[string]*kind),
		byType: make(map[reflect.Type]*kind),
	}
}

// foldName normalises a kind or prefab name for lookup.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// RegisterKind names component type T.
func RegisterKind[T any](k *Kinds, name string) error {
	return k.add(newKind[T](name, false))
}

// RegisterTagKind names tag type T.
func RegisterTagKind[T comparable](k *Kinds, name string) error {
	return k.add(newKind[T](name, true))
}

func newKind[T any](name string, tag bool) *kind {
	return &kind{
		name: name,
		typ:  reflect.TypeFor[T](),
		tag:  tag,
		fromYAML: func(n *yaml.Node) (any, error) {
			var v T
			if err := n.Decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		},
		fromJSON: func(raw []byte) (any, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func (k *Kinds) add(kd *kind) error {
	key := foldName(kd.name)
	if _, ok := k.byName[key]; ok {
		return fmt.Errorf("register %q: %w", kd.name, ErrDuplicateKind)
	}
	if prev, ok := k.byType[kd.typ]; ok {
		return fmt.Errorf("register %q: %s already named %q: %w", kd.name, kd.typ, prev.name, ErrDuplicateKind)
	}
	k.byName[key] = kd
	k.byType[kd.typ] = kd
	return nil
}

func (k *Kinds) lookup(name string) (*kind, error) {
	kd, ok := k.byName[foldName(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownKind)
	}
	return kd, nil
}

// IsTag reports whether name is a registered tag kind.
func (k *Kinds) IsTag(name string) bool {
	kd, err := k.lookup(name)
	return err == nil && kd.tag
}

// Decode builds a value of the named kind from a YAML node.
func (k *Kinds) Decode(name string, node *yaml.Node) (any, error) {
	kd, err := k.lookup(name)
	if err != nil {
		return nil, err
	}
	v, err := kd.fromYAML(node)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kd.name, err)
	}
	return v, nil
}

// DecodeValue builds a value of the named kind from loosely typed data such
// as map[string]any, going through a YAML node so field tags apply.
func (k *Kinds) DecodeValue(name string, raw any) (any, error) {
	var node yaml.Node
	if err := node.Encode(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return k.Decode(name, &node)
}

// DecodeJSON builds a value of the named kind from its JSON encoding.
func (k *Kinds) DecodeJSON(name string, raw []byte) (any, error) {
	kd, err := k.lookup(name)
	if err != nil {
		return nil, err
	}
	v, err := kd.fromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kd.name, err)
	}
	return v, nil
}

// Name returns the registered name for v's dynamic type.
func (k *Kinds) Name(v any) (string, bool) {
	kd, ok := k.byType[reflect.TypeOf(v)]
	if !ok {
		return "", false
	}
	return kd.name, true
}

// Encode returns v's kind name and JSON encoding.
func (k *Kinds) Encode(v any) (string, []byte, error) {
	name, ok := k.Name(v)
	if !ok {
		return "", nil, fmt.Errorf("encode %T: %w", v, ErrUnknownKind)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return name, raw, nil
}

// Names lists every registered kind, sorted.
func (k *Kinds) Names() []string {
	names := make([]string, 0, len(k.byName))
	for _, kd := range k.byName {
		names = append(names, kd.name)
	}
	sort.Strings(names)
	return names
}
