package config

import "github.com/spf13/cast"

// Int, Bool, and String coerce a resolved configuration value into the
// requested Go type, following the same lenient conversion rules
// workspace/configuration consumers expect (a server-side setting may
// arrive as a JSON number, string, or bool depending on how a user's
// settings.json spelled it).
func Int(t Tree, section string) (int, error) {
	return cast.ToIntE(Section(t, section))
}

func Bool(t Tree, section string) (bool, error) {
	return cast.ToBoolE(Section(t, section))
}

func String(t Tree, section string) (string, error) {
	return cast.ToStringE(Section(t, section))
}

// IntOr and BoolOr return the fallback instead of an error when the
// section is absent or not convertible, for call sites that treat an
// unset setting as "use the default" rather than a hard failure.
func IntOr(t Tree, section string, fallback int) int {
	if Section(t, section) == nil {
		return fallback
	}
	v, err := Int(t, section)
	if err != nil {
		return fallback
	}
	return v
}

func BoolOr(t Tree, section string, fallback bool) bool {
	if Section(t, section) == nil {
		return fallback
	}
	v, err := Bool(t, section)
	if err != nil {
		return fallback
	}
	return v
}
