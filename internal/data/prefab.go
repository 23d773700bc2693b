package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldbuild/internal/core/ecs"
	"github.com/l1jgo/worldbuild/internal/transform"
)

// prefabEntry is one entity as written in a prefab file:
//
//	- name: lamp
//	  tags:
//	    layer: lights
//	  components:
//	    light_color: {r: 1, g: 0.9, b: 0.8}
//	    intensity: {value: 2}
//	  children:
//	    - components:
//	        translation: {value: [0, 1, 0]}
type prefabEntry struct {
	Name       string               `yaml:"name"`
	Tags       map[string]yaml.Node `yaml:"tags"`
	Components map[string]yaml.Node `yaml:"components"`
	Children   []prefabEntry        `yaml:"children"`
}

type prefabFile struct {
	Prefabs []prefabEntry `yaml:"prefabs"`
}

// Prefab is a decoded entity template. Inserting it spawns the entity plus
// any children, each parented to it with an identity LocalToParent.
type Prefab struct {
	Name       string
	Tags       []any
	Components []any
	Children   []*Prefab
}

// Insert spawns the prefab into w and returns the top-level entity.
func (p *Prefab) Insert(w *ecs.World) (ecs.EntityID, error) {
	ids, err := w.Insert(ecs.Tags(p.Tags...), ecs.Bundle(p.Components...))
	if err != nil {
		return 0, fmt.Errorf("prefab %s: %w", p.label(), err)
	}
	root := ids[0]
	for _, c := range p.Children {
		child, err := c.Insert(w)
		if err != nil {
			return 0, fmt.Errorf("prefab %s: %w", p.label(), err)
		}
		if err := ecs.Set(w, child, transform.Parent{Entity: root}); err != nil {
			return 0, fmt.Errorf("prefab %s: %w", p.label(), err)
		}
		if err := ecs.Set(w, child, transform.IdentityLocalToParent()); err != nil {
			return 0, fmt.Errorf("prefab %s: %w", p.label(), err)
		}
	}
	return root, nil
}

func (p *Prefab) label() string {
	if p.Name == "" {
		return "(child)"
	}
	return p.Name
}

// PrefabTable holds prefabs by case-folded name.
type PrefabTable struct {
	prefabs map[string]*Prefab
}

// LoadPrefabTable loads a prefab YAML file. Every kind the file names must be
// registered in kinds.
func LoadPrefabTable(path string, kinds *Kinds) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefabs: %w", err)
	}
	return ParsePrefabs(raw, kinds)
}

func ParsePrefabs(raw []byte, kinds *Kinds) (*PrefabTable, error) {
	var f prefabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prefabs: %w", err)
	}
	t := &PrefabTable{
		prefabs: make(map[string]*Prefab, len(f.Prefabs)),
	}
	for i := range f.Prefabs {
		e := &f.Prefabs[i]
		if e.Name == "" {
			return nil, fmt.Errorf("parse prefabs: entry %d has no name", i)
		}
		key := foldName(e.Name)
		if _, dup := t.prefabs[key]; dup {
			return nil, fmt.Errorf("parse prefabs: duplicate prefab %q", e.Name)
		}
		p, err := decodePrefab(e, kinds)
		if err != nil {
			return nil, fmt.Errorf("parse prefabs: %w", err)
		}
		t.prefabs[key] = p
	}
	return t, nil
}

func decodePrefab(e *prefabEntry, kinds *Kinds) (*Prefab, error) {
	p := &Prefab{Name: e.Name}
	for _, name := range sortedKeys(e.Tags) {
		if !kinds.IsTag(name) {
			return nil, fmt.Errorf("prefab %s: tag %q: %w", p.label(), name, ErrUnknownKind)
		}
		node := e.Tags[name]
		v, err := kinds.Decode(name, &node)
		if err != nil {
			return nil, fmt.Errorf("prefab %s: %w", p.label(), err)
		}
		p.Tags = append(p.Tags, v)
	}
	for _, name := range sortedKeys(e.Components) {
		if kinds.IsTag(name) {
			return nil, fmt.Errorf("prefab %s: %q is a tag, not a component", p.label(), name)
		}
		node := e.Components[name]
		v, err := kinds.Decode(name, &node)
		if err != nil {
			return nil, fmt.Errorf("prefab %s: %w", p.label(), err)
		}
		p.Components = append(p.Components, v)
	}
	for i := range e.Children {
		c, err := decodePrefab(&e.Children[i], kinds)
		if err != nil {
			return nil, fmt.Errorf("prefab %s: child %d: %w", p.label(), i, err)
		}
		p.Children = append(p.Children, c)
	}
	return p, nil
}

func sortedKeys(m map[string]yaml.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the prefab with the given name, ignoring case.
func (t *PrefabTable) Get(name string) (*Prefab, bool) {
	p, ok := t.prefabs[foldName(name)]
	return p, ok
}

// Count returns the total number of prefabs loaded.
func (t *PrefabTable) Count() int {
	return len(t.prefabs)
}

// Names lists prefab names as written in the file, sorted.
func (t *PrefabTable) Names() []string {
	names := make([]string, 0, len(t.prefabs))
	for _, p := range t.prefabs {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
