package outputset

import "fmt"

// Resolve reduces a declaration tree to an ordered list of backing entries.
//
// Excluded subtrees contribute nothing, at any nesting depth; siblings of an
// excluded node still resolve normally. Composites concatenate their children
// in declared order. A filtered tree contributes exactly one directory entry
// and an archive tree exactly one file entry - neither triggers any
// filesystem access here. A visited tree is enumerated through its visitor,
// one entry per visited directory and file, in visitation order. No
// deduplication is performed: overlapping declarations yield overlapping
// entries.
func Resolve(decl *Declaration) ([]Entry, error) {
	entries := make([]Entry, 0)
	if err := resolve(decl, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func resolve(decl *Declaration, entries *[]Entry) error {
	switch decl.kind {
	case KindExcluded:
		return nil
	case KindComposite:
		for _, child := range decl.children {
			if err := resolve(child, entries); err != nil {
				return err
			}
		}
		return nil
	case KindSingleFile:
		*entries = append(*entries, fileEntry(decl.path))
		return nil
	case KindFileList:
		for _, f := range decl.files {
			*entries = append(*entries, fileEntry(f))
		}
		return nil
	case KindFilteredTree:
		*entries = append(*entries, dirEntry(decl.root, decl.includes, decl.excludes))
		return nil
	case KindArchiveTree:
		// the archive itself is the backing file, its contents stay packed
		*entries = append(*entries, fileEntry(decl.path))
		return nil
	case KindVisitedTree:
		return decl.walk(&entryVisitor{entries: entries})
	default:
		return fmt.Errorf("unhandled output declaration kind %d", decl.kind)
	}
}

type entryVisitor struct {
	entries *[]Entry
}

func (v *entryVisitor) VisitDir(path string) {
	*v.entries = append(*v.entries, dirEntry(path, nil, nil))
}

func (v *entryVisitor) VisitFile(path string) {
	*v.entries = append(*v.entries, fileEntry(path))
}
