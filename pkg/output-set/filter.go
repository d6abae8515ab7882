package outputset

import (
	ignore "github.com/sabhiram/go-gitignore"
)

// Filter decides whether a path relative to a directory entry's root is
// selected by the entry's include and exclude patterns. Patterns use
// gitignore syntax. An empty include set selects everything; excludes
// always win over includes.
type Filter struct {
	includes *ignore.GitIgnore
	excludes *ignore.GitIgnore
}

// NewFilter compiles the pattern sets of a directory entry.
func NewFilter(includes, excludes []string) *Filter {
	f := &Filter{}
	if len(includes) > 0 {
		f.includes = ignore.CompileIgnoreLines(includes...)
	}
	if len(excludes) > 0 {
		f.excludes = ignore.CompileIgnoreLines(excludes...)
	}
	return f
}

// Matches reports whether the file at the given relative path is selected.
func (f *Filter) Matches(rel string) bool {
	if f.excludes != nil && f.excludes.MatchesPath(rel) {
		return false
	}
	if f.includes == nil {
		return true
	}
	return f.includes.MatchesPath(rel)
}

// KeepDir reports whether a directory at the given relative path should be
// descended into. Only excludes prune directories: an include pattern for
// files must not cut off the directories containing them.
func (f *Filter) KeepDir(rel string) bool {
	return f.excludes == nil || !f.excludes.MatchesPath(rel+"/")
}
