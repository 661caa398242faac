package config

import "os"

// ExpandEnv walks every string leaf in a Tree and expands ${VAR_NAME}
// placeholders against the process environment, leaving a placeholder
// untouched if the variable is unset. Grounded on lsp/config_env_overrides.go's
// expandEnvVarsInArgs, generalized from launch-argument strings to arbitrary
// config leaves (a settings value like a project root or include path is
// just as likely to reference ${WORKSPACE_ROOT} as a server's command-line
// args were in the teacher).
func ExpandEnv(t Tree) Tree {
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = expandEnvValue(v)
	}
	return out
}

func expandEnvValue(v any) any {
	switch val := v.(type) {
	case string:
		return os.Expand(val, func(key string) string {
			if resolved, ok := os.LookupEnv(key); ok {
				return resolved
			}
			return "${" + key + "}"
		})
	case Tree:
		return ExpandEnv(val)
	case map[string]any:
		return ExpandEnv(Tree(val))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = expandEnvValue(e)
		}
		return out
	default:
		return v
	}
}
