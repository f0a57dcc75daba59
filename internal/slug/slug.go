package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Fallback is used when a title has no characters left after cleaning.
const Fallback = "course"

var (
	stripRe    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\p{Zs}-]`)
	collapseRe = regexp.MustCompile(`[\s\p{Zs}_-]+`)
)

// Slugify turns a title into a URL-safe identifier.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = stripRe.ReplaceAllString(s, "")
	s = collapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base if free, otherwise the first free base-2, base-3, ...
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
