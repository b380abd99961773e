package watchlist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter_Include(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		repo   RepoDescriptor
		want   bool
	}{
		{"no-filters",
			Filter{User: "alice"},
			RepoDescriptor{Name: "x", OwnerLogin: "bob"},
			true,
		},
		{"ignored-by-name",
			Filter{User: "alice", Ignore: NewIgnoreSet("x")},
			RepoDescriptor{Name: "x", OwnerLogin: "bob"},
			false,
		},
		{"ignored-by-full-name",
			Filter{User: "alice", Ignore: NewIgnoreSet("bob/x")},
			RepoDescriptor{Name: "x", OwnerLogin: "bob"},
			false,
		},
		{"full-name-of-other-owner",
			Filter{User: "alice", Ignore: NewIgnoreSet("carol/x")},
			RepoDescriptor{Name: "x", OwnerLogin: "bob"},
			true,
		},
		{"ignored-even-if-own-included",
			Filter{User: "alice", Ignore: NewIgnoreSet("x"), IncludeOwn: true},
			RepoDescriptor{Name: "x", OwnerLogin: "alice"},
			false,
		},
		{"own-excluded",
			Filter{User: "alice"},
			RepoDescriptor{Name: "y", OwnerLogin: "alice"},
			false,
		},
		{"own-excluded-case-insensitive",
			Filter{User: "alice"},
			RepoDescriptor{Name: "y", OwnerLogin: "Alice"},
			false,
		},
		{"own-included",
			Filter{User: "alice", IncludeOwn: true},
			RepoDescriptor{Name: "y", OwnerLogin: "alice"},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Include(tt.repo); got != tt.want {
				t.Errorf("Include() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	repos := []RepoDescriptor{
		{Name: "a", OwnerLogin: "alice"},
		{Name: "b", OwnerLogin: "bob"},
		{Name: "c", OwnerLogin: "carol"},
		{Name: "b", OwnerLogin: "carol"},
		{Name: "d", OwnerLogin: "dave"},
	}

	t.Run("keeps order", func(t *testing.T) {
		f := Filter{User: "alice", Ignore: NewIgnoreSet("carol/b", "d")}
		want := []RepoDescriptor{
			{Name: "b", OwnerLogin: "bob"},
			{Name: "c", OwnerLogin: "carol"},
		}
		if diff := cmp.Diff(want, f.Apply(repos)); diff != "" {
			t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no own repositories", func(t *testing.T) {
		f := Filter{User: "carol"}
		for _, r := range f.Apply(repos) {
			if r.OwnerLogin == "carol" {
				t.Errorf("own repository %s returned", r.FullName())
			}
		}
	})

	t.Run("ignore filter independent of include own", func(t *testing.T) {
		for _, includeOwn := range []bool{true, false} {
			f := Filter{User: "alice", Ignore: NewIgnoreSet("b"), IncludeOwn: includeOwn}
			for _, r := range f.Apply(repos) {
				if r.Name == "b" {
					t.Errorf("ignored repository %s returned, includeOwn:%v", r.FullName(), includeOwn)
				}
			}
		}
	})
}

func TestNewIgnoreSet(t *testing.T) {
	s := NewIgnoreSet("x", "", "bob/y")
	if len(s) != 2 {
		t.Errorf("expected empty names to be dropped, got %v", s)
	}
	if !s.Contains("x") || !s.Contains("bob/y") || s.Contains("y") {
		t.Errorf("unexpected set content %v", s)
	}

	var nilSet IgnoreSet
	if nilSet.Contains("x") {
		t.Errorf("nil set must not contain anything")
	}
}
