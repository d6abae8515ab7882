package outputset

// Kind discriminates the declaration variants.
// The set is closed: the resolver dispatches over these tags exhaustively
// and reports anything else as an error, so a new kind cannot be handled
// silently.
type Kind int

const (
	// KindSingleFile declares one file.
	KindSingleFile Kind = iota
	// KindFileList declares a flat list of files.
	KindFileList
	// KindFilteredTree declares a directory root plus include/exclude patterns.
	KindFilteredTree
	// KindArchiveTree declares a tree whose contents live inside an archive
	// file. The archive is treated as a single file and is never expanded.
	KindArchiveTree
	// KindVisitedTree declares a tree that can only be enumerated through a
	// visitor callback.
	KindVisitedTree
	// KindComposite declares an ordered list of child declarations.
	KindComposite
	// KindExcluded declares output that must never resolve to entries,
	// e.g. a collection whose contents are computed lazily at use time.
	KindExcluded
)

// Visitor receives the directories and files of a visited tree,
// in visitation order.
type Visitor interface {
	VisitDir(path string)
	VisitFile(path string)
}

// WalkFunc enumerates a visited tree through the given visitor.
type WalkFunc func(Visitor) error

// Declaration describes what files a task produces.
// It is a tree: composites hold child declarations, all other kinds are
// leaves. Declarations are built with the constructor functions below and
// are immutable afterwards.
type Declaration struct {
	kind     Kind
	path     string
	files    []string
	root     string
	includes []string
	excludes []string
	walk     WalkFunc
	children []*Declaration
	label    string
}

// Kind returns the variant tag of the declaration.
func (d *Declaration) Kind() Kind {
	return d.kind
}

// SingleFile declares a single output file.
func SingleFile(path string) *Declaration {
	return &Declaration{kind: KindSingleFile, path: path}
}

// FileList declares a flat list of output files.
func FileList(paths ...string) *Declaration {
	return &Declaration{kind: KindFileList, files: paths}
}

// FilteredTree declares a directory tree filtered by include and exclude
// patterns. Empty pattern slices select the whole tree.
func FilteredTree(root string, includes, excludes []string) *Declaration {
	return &Declaration{kind: KindFilteredTree, root: root, includes: includes, excludes: excludes}
}

// ArchiveTree declares a tree backed by the archive file at the given path.
func ArchiveTree(path string) *Declaration {
	return &Declaration{kind: KindArchiveTree, path: path}
}

// VisitedTree declares a tree that is enumerated by calling walk.
func VisitedTree(walk WalkFunc) *Declaration {
	return &Declaration{kind: KindVisitedTree, walk: walk}
}

// Composite declares an ordered list of child declarations.
func Composite(children ...*Declaration) *Declaration {
	return &Declaration{kind: KindComposite, children: children}
}

// Excluded declares output that must never contribute backing entries.
// The label is only used for logging and diagnostics.
func Excluded(label string) *Declaration {
	return &Declaration{kind: KindExcluded, label: label}
}
