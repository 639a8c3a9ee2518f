package source

import (
	"fmt"
	"sort"

	"github.com/Faultbox/polyweld/pkg/encoding"
	"github.com/Faultbox/polyweld/pkg/grf"
)

// Library is a stack of archives searched as one. An entry present in more
// than one archive is read from the archive added last, the way patch
// archives override the base data archive.
type Library struct {
	archives []*grf.Archive
}

// OpenLibrary opens every archive in order of increasing priority.
func OpenLibrary(paths ...string) (*Library, error) {
	lib := &Library{}
	for _, path := range paths {
		archive, err := grf.Open(path)
		if err != nil {
			lib.Close()
			return nil, fmt.Errorf("opening archive %s: %w", path, err)
		}
		lib.Add(archive)
	}
	return lib, nil
}

// Add pushes archive on top of the stack.
func (l *Library) Add(archive *grf.Archive) {
	l.archives = append(l.archives, archive)
}

// Len returns the number of archives.
func (l *Library) Len() int {
	return len(l.archives)
}

// Lookup returns the archive that serves name, or nil.
func (l *Library) Lookup(name string) *grf.Archive {
	for i := len(l.archives) - 1; i >= 0; i-- {
		if l.archives[i].Contains(name) {
			return l.archives[i]
		}
	}
	return nil
}

// Glob returns one source per distinct entry matching pattern in any
// archive, sorted by name. Each source reads from the archive that serves it.
func (l *Library) Glob(pattern string) ([]*Archive, error) {
	owner := make(map[string]*grf.Archive)
	for _, archive := range l.archives {
		names, err := archive.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			owner[encoding.NormalizePath(name)] = archive
		}
	}

	names := make([]string, 0, len(owner))
	for name := range owner {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]*Archive, len(names))
	for i, name := range names {
		sources[i] = &Archive{Archive: owner[name], Path: name}
	}
	return sources, nil
}

// Close closes every archive.
func (l *Library) Close() {
	for _, archive := range l.archives {
		archive.Close()
	}
	l.archives = nil
}
