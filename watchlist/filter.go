package watchlist

import "strings"

// Filter decides which watched repositories are mirrored
type Filter struct {
	User       string    // login of the user whose watch list is mirrored
	Ignore     IgnoreSet // bare names or "owner/name" to skip
	IncludeOwn bool      // whether repositories owned by User are mirrored
}

// Include reports whether given repository passes the filter.
// owner is compared case insensitively like GitHub logins.
func (f Filter) Include(d RepoDescriptor) bool {
	if f.Ignore.Contains(d.Name) || f.Ignore.Contains(d.FullName()) {
		return false
	}
	if !f.IncludeOwn && strings.EqualFold(d.OwnerLogin, f.User) {
		return false
	}
	return true
}

// Apply returns repositories which pass the filter keeping their order
func (f Filter) Apply(repos []RepoDescriptor) []RepoDescriptor {
	var out []RepoDescriptor
	for _, r := range repos {
		if f.Include(r) {
			out = append(out, r)
		}
	}
	return out
}
