// Package pathutil implements the server's path algebra: joining, trimming
// and "up one directory" operations over POSIX-style working directories.
//
// The functions here never allocate beyond the returned string and never
// touch the filesystem; they operate purely on strings so the session can
// keep its current-working-directory in a small fixed-capacity field the
// way the rest of the engine keeps bounded scratch buffers.
package pathutil

import "strings"

// Root is the working directory every session starts in.
const Root = "/"

// UpOne removes the trailing path segment from p, the way "cd .." would.
// UpOne("/") is "/"; UpOne("/a/b") is "/a"; UpOne("/a") is "/".
func UpOne(p string) string {
	if p == Root || !strings.Contains(p, "/") {
		return Root
	}
	idx := strings.LastIndex(p, "/")
	if idx == 0 {
		return Root
	}
	return p[:idx]
}

// Build computes the new working directory that results from applying arg
// (an argument to CWD, or any command taking a path) against cwd, following
// the same four cases the source's ftp_build_path uses:
//
//  1. arg is "" or "/"        -> cwd becomes "/"
//  2. arg is ".."             -> cwd becomes UpOne(cwd)
//  3. arg starts with "/"     -> cwd becomes arg (absolute)
//  4. otherwise               -> cwd becomes cwd + "/" + arg
//
// After the mutation, a trailing "/" is trimmed unless the result is just
// "/". Build reports whether the resulting path fits within capacity bytes;
// on failure the returned string is the original cwd, unmodified — callers
// must not commit a path that doesn't fit.
func Build(cwd, arg string, capacity int) (string, bool) {
	var next string
	switch {
	case arg == "" || arg == Root:
		next = Root
	case arg == "..":
		next = UpOne(cwd)
	case strings.HasPrefix(arg, "/"):
		next = arg
	default:
		if strings.HasSuffix(cwd, "/") {
			next = cwd + arg
		} else {
			next = cwd + "/" + arg
		}
	}

	if len(next) > 1 && strings.HasSuffix(next, "/") {
		next = strings.TrimRight(next, "/")
		if next == "" {
			next = Root
		}
	}

	if len(next) > capacity {
		return cwd, false
	}
	return next, true
}

// Join builds the full path that a relative file argument resolves to under
// cwd, without mutating cwd itself. It is the form RETR/STOR/DELE/MKD/RNFR
// use to build the working path they hand to the filesystem collaborator.
func Join(cwd, arg string) string {
	full, _ := Build(cwd, arg, len(cwd)+len(arg)+2)
	return full
}
