package outputset

// EntryKind discriminates the two backing entry shapes.
type EntryKind int

const (
	// EntryFile backs a single file.
	EntryFile EntryKind = iota
	// EntryDirectory backs a directory root with include/exclude patterns.
	EntryDirectory
)

// Entry is the minimal filesystem-level description needed to reproduce
// part of a task's output: a single file, or a directory root together
// with its patterns. Directory contents are deliberately not enumerated
// here, to keep entries small and avoid filesystem walks at resolution
// time.
type Entry struct {
	Kind EntryKind
	// Path is the file path for EntryFile, or the root for EntryDirectory.
	Path     string
	Includes []string
	Excludes []string
}

func fileEntry(path string) Entry {
	return Entry{Kind: EntryFile, Path: path}
}

func dirEntry(root string, includes, excludes []string) Entry {
	return Entry{Kind: EntryDirectory, Path: root, Includes: includes, Excludes: excludes}
}
