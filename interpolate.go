package courier

import (
	"regexp"
	"strings"

	"github.com/tfkr-ae/courier/domain"
)

// placeholderPattern matches {{ name }} with optional whitespace inside the braces.
// The name itself cannot contain braces.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Interpolate replaces every placeholder whose name is in resolved with its value.
// Unknown placeholders are left verbatim. The template is scanned once, so substituted
// values are never re-expanded and the result does not depend on the order of resolved.
func Interpolate(template string, resolved *domain.ResolvedSet) string {
	if resolved.Len() == 0 || !strings.Contains(template, "{{") {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholderPattern.FindStringSubmatch(placeholder)[1]
		if v, ok := resolved.Get(name); ok {
			return v.Value
		}
		return placeholder
	})
}

// ExtractNames returns the distinct placeholder names in template, in order of first appearance.
func ExtractNames(template string) []string {
	names := []string{}
	seen := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
