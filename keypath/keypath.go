// Package keypath validates and normalizes caller-supplied paths into safe,
// namespace-confined storage keys.
//
// A storage key is a slash-delimited POSIX-style path relative to the bucket
// root. Leading "/", "//" and "./" sequences anchor at the root and are
// collapsed; ".." segments that would ascend above the root are rejected.
//
// Resolution is strictly lexical (segment-by-segment), never delegated to OS
// path semantics: the target is a flat key namespace, not a filesystem, so a
// ".." that pops below the root is illegal rather than "resolved away".
package keypath

import (
	"strconv"
	"strings"

	"github.com/mfolkeseth/sink-gcs/errs"
)

// Normalize resolves raw into a canonical relative storage key.
//
// It returns ErrKindPathTraversal when the resolved form would escape the
// storage root, whether the offending ".." is leading ("../x") or embedded
// ("/a/../../b"). The empty string and bare "/" normalize to "" — the root
// itself; callers decide whether a root key is meaningful for their operation.
//
//	Normalize("./x")       == "x"
//	Normalize("/x")        == "x"
//	Normalize("//x")       == "x"
//	Normalize("a//b/./c")  == "a/b/c"
//	Normalize("../x")      -> path_traversal
//	Normalize("/x/../../y") -> path_traversal
func Normalize(raw string) (string, error) {
	resolved := make([]string, 0, strings.Count(raw, "/")+1)

	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
			// Empty segments come from leading, trailing or doubled
			// slashes; both anchor at the current position.
		case "..":
			if len(resolved) == 0 {
				return "", errs.New(errs.ErrKindPathTraversal,
					"path "+strconv.Quote(raw)+" escapes the storage root")
			}
			resolved = resolved[:len(resolved)-1]
		default:
			resolved = append(resolved, seg)
		}
	}

	return strings.Join(resolved, "/"), nil
}
