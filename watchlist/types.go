package watchlist

// RepoDescriptor represents a single watched remote repository
type RepoDescriptor struct {
	Name          string // bare repository name
	CloneURL      string // URL used to clone the repository
	OwnerLogin    string // login of the repository owner
	DefaultBranch string // primary branch reported by the API, might be empty
}

// FullName returns "owner/name" of the repository
func (d RepoDescriptor) FullName() string {
	return d.OwnerLogin + "/" + d.Name
}

// IgnoreSet holds repository identities which should not be mirrored.
// identities are either bare names or "owner/name"
type IgnoreSet map[string]struct{}

// NewIgnoreSet returns IgnoreSet containing given identities
func NewIgnoreSet(names ...string) IgnoreSet {
	s := make(IgnoreSet, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether given identity is ignored
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Page is a single page of the watched repositories as returned by the API
// before any filtering
type Page struct {
	Number int
	Repos  []RepoDescriptor
}
