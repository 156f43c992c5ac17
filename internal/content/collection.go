package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// ErrDuplicateSlug is wrapped by CheckDuplicateSlugs.
var ErrDuplicateSlug = errors.New("duplicate slug")

// FilterDrafts returns posts without drafts unless includeDrafts is set.
// The input slice is not modified.
func FilterDrafts(posts []Post, includeDrafts bool) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.Meta.Draft && !includeDrafts {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortPosts orders posts newest first by lexical date, then by slug.
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Meta.Date != posts[j].Meta.Date {
			return posts[i].Meta.Date > posts[j].Meta.Date
		}
		return posts[i].Meta.Slug < posts[j].Meta.Slug
	})
}

// CheckDuplicateSlugs fails when two posts would be written to the same path.
func CheckDuplicateSlugs(posts []Post) error {
	seen := make(map[string]string, len(posts))
	var dups []string
	for _, p := range posts {
		if first, ok := seen[p.Meta.Slug]; ok {
			dups = append(dups, fmt.Sprintf("%q (%s, %s)", p.Meta.Slug, first, p.Path))
			continue
		}
		seen[p.Meta.Slug] = p.Path
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return ferrors.WrapError(ErrDuplicateSlug, ferrors.CategoryContent, "posts share a slug: "+strings.Join(dups, "; ")).
		UserAction().
		WithContext("duplicates", dups).
		Build()
}

// SiteFingerprint hashes the fingerprints of posts independent of their order.
func SiteFingerprint(posts []Post) string {
	fps := make([]string, 0, len(posts))
	for _, p := range posts {
		fps = append(fps, p.Path+"="+p.Fingerprint)
	}
	sort.Strings(fps)
	return mdfp.CalculateFingerprintFromParts("", strings.Join(fps, "\n"))
}
