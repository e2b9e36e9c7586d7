package core

import "strings"

// DefaultScope is always part of the required scope.
const DefaultScope = "appid_default"

// RequiredScope returns the required scope string: DefaultScope followed by
// any caller-supplied scope words.
func RequiredScope(extra string) string {
	words := strings.Fields(extra)
	if len(words) == 0 {
		return DefaultScope
	}
	return DefaultScope + " " + strings.Join(words, " ")
}

// ValidateScope checks that every whitespace-separated word of required
// appears in supplied. The first missing word is reported as
// insufficientScope.
func ValidateScope(required, supplied string) error {
	granted := make(map[string]struct{})
	for _, s := range strings.Fields(supplied) {
		granted[s] = struct{}{}
	}

	for _, s := range strings.Fields(required) {
		if _, ok := granted[s]; !ok {
			return Errorf(KindInsufficientScope, "missing scope %q", s)
		}
	}

	return nil
}
