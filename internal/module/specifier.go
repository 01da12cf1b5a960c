// Package module implements module records: specifier normalization, the
// (referrer, specifier) load cache, linking of import/export bindings, and
// depth-first evaluation.
package module

import "strings"

// Normalize resolves a specifier against its referrer: forward-slash
// separators, "." and ".." components, absolute when leading with "/".
// Bare specifiers (no leading "/", "./", or "../") are opaque to the
// engine and returned unchanged for the host loader.
func Normalize(referrer, specifier string) string {
	if specifier == "" {
		return specifier
	}
	isRelative := strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
	isAbsolute := strings.HasPrefix(specifier, "/")
	if !isRelative && !isAbsolute {
		return specifier
	}

	base := ""
	if isRelative && referrer != "" {
		if i := strings.LastIndex(referrer, "/"); i >= 0 {
			base = referrer[:i]
		}
	}

	joined := specifier
	if isRelative {
		if base != "" {
			joined = base + "/" + specifier
		}
	}

	absolute := strings.HasPrefix(joined, "/")
	var out []string
	for _, seg := range strings.Split(joined, "/") {
		switch seg {
		case "", ".":
			// collapse
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}

	result := strings.Join(out, "/")
	if absolute {
		return "/" + result
	}
	if result == "" {
		return "."
	}
	return result
}
