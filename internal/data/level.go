package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l1jgo/worldstate/internal/field"
	"gopkg.in/yaml.v3"
)

// KeyValue is one designer key/value pair.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValues keeps pairs in file order; entities see their keys in the order
// the level author wrote them.
type KeyValues []KeyValue

// UnmarshalYAML reads a mapping. Sequence values ([x, y, z]) are joined with
// spaces so vectors can be written either way.
func (kv *KeyValues) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: keyvalues must be a mapping", n.Line)
	}
	out := make(KeyValues, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		var value string
		switch v.Kind {
		case yaml.ScalarNode:
			value = v.Value
		case yaml.SequenceNode:
			parts := make([]string, 0, len(v.Content))
			for _, c := range v.Content {
				if c.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: key %q: nested values are not allowed", c.Line, k.Value)
				}
				parts = append(parts, c.Value)
			}
			value = strings.Join(parts, " ")
		default:
			return fmt.Errorf("line %d: key %q: unsupported value", v.Line, k.Value)
		}
		out = append(out, KeyValue{Key: k.Value, Value: value})
	}
	*kv = out
	return nil
}

// Get returns the last value of key.
func (kv KeyValues) Get(key string) (string, bool) {
	for i := len(kv) - 1; i >= 0; i-- {
		if kv[i].Key == key {
			return kv[i].Value, true
		}
	}
	return "", false
}

// EntityDef is one entity placed in a level.
type EntityDef struct {
	Classname string    `yaml:"classname"`
	KeyValues KeyValues `yaml:"keyvalues"`
}

// Level is a level file: a name and the entities it spawns on first visit.
type Level struct {
	Name     string      `yaml:"name"`
	Title    string      `yaml:"title"`
	Entities []EntityDef `yaml:"entities"`
}

// LoadLevel loads one level file. A level without a name takes the file's
// base name.
func LoadLevel(path string) (*Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	var lv Level
	if err := yaml.Unmarshal(raw, &lv); err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}
	if lv.Name == "" {
		lv.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i, e := range lv.Entities {
		if e.Classname == "" {
			return nil, fmt.Errorf("level %s: entity %d has no classname", lv.Name, i)
		}
	}
	return &lv, nil
}

// LevelSet holds every level of a campaign, keyed by case-folded name.
type LevelSet struct {
	levels map[string]*Level
}

// LoadLevels loads every .yaml/.yml file in dir.
func LoadLevels(dir string) (*LevelSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read levels dir: %w", err)
	}
	s := &LevelSet{levels: make(map[string]*Level, len(entries))}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		lv, err := LoadLevel(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		key := field.Fold(lv.Name)
		if _, dup := s.levels[key]; dup {
			return nil, fmt.Errorf("level %q defined twice", lv.Name)
		}
		s.levels[key] = lv
	}
	return s, nil
}

// Get returns the level called name, ignoring case.
func (s *LevelSet) Get(name string) (*Level, bool) {
	lv, ok := s.levels[field.Fold(name)]
	return lv, ok
}

// Names lists the level names, sorted.
func (s *LevelSet) Names() []string {
	out := make([]string, 0, len(s.levels))
	for _, lv := range s.levels {
		out = append(out, lv.Name)
	}
	sort.Strings(out)
	return out
}

func (s *LevelSet) Count() int { return len(s.levels) }
