package recovery

import "strings"

// OutputPath inserts suffix immediately before the trailing ext of path:
// "/a.fmp12/b.fmp12" becomes "/a.fmp12/b_recovered.fmp12". Only an anchored
// match counts; ok is false when path does not end with ext. The comparison
// ignores case and the original spelling of the extension is kept.
func OutputPath(path, ext, suffix string) (string, bool) {
	if !HasExtension(path, ext) {
		return "", false
	}
	stem := path[:len(path)-len(ext)]
	return stem + suffix + path[len(stem):], true
}

// HasExtension reports whether path ends with ext, ignoring case.
func HasExtension(path, ext string) bool {
	if ext == "" || len(path) <= len(ext) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(ext):], ext)
}
