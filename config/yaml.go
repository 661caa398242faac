package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads a YAML settings file into a Tree suitable for
// UpdateGlobal, the on-disk counterpart to a workspace/didChangeConfiguration
// push. YAML rather than JSON since that is what a host application's own
// config file is realistically written in.
func LoadYAMLFile(path string) (Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree Tree
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return normalizeYAML(tree), nil
}

// normalizeYAML recursively converts map[string]interface{} produced by
// yaml.v3 for nested mappings into this package's Tree type, so deepMerge's
// asTree type switch recognizes them.
func normalizeYAML(t Tree) Tree {
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAML(Tree(val))
	case Tree:
		return normalizeYAML(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeYAMLValue(e)
		}
		return out
	default:
		return v
	}
}
