package gopher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSymlinks bounds the number of links followed while canonicalizing.
const maxSymlinks = 40

// Resolve maps a client selector to an absolute path confined to root.
//
// root must already be canonical (see CanonicalRoot). The selector is appended
// to root without lexical cleaning and the result is walked one component at
// a time: every symlink along the existing part of the path is followed and
// each ".." applies to the path resolved so far. Only then is the result
// checked against root, so neither "../../etc/passwd" nor a symlink pointing
// outside the tree gets through. Rejections carry KindPathInjection.
//
// The containment check always runs first. A path that escapes root is a
// path injection whatever else went wrong while walking it; a path inside
// root that could not be walked (a file used as a directory, a permission
// error) is KindResourceNotFound.
//
// Resolve performs no I/O on the target beyond following symlinks.
func Resolve(root, selector string) (string, error) {
	joined := root + string(filepath.Separator) + selector

	resolved, err := Canonicalize(joined)
	if !Within(root, resolved) {
		return "", ErrPathInjection(selector, resolved)
	}
	if err != nil {
		return "", ErrResourceNotFound(selector, err)
	}

	return resolved, nil
}

// Canonicalize returns the absolute form of path with symlinks and relative
// segments removed.
//
// The returned path is always usable, even when err is non-nil. Components
// that do not exist, or cannot be inspected, are appended as-is and later
// ".." segments remove them again. err reports the first failure other than
// a missing component: ENOTDIR, EACCES or a symlink loop.
func Canonicalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.Clean(path), fmt.Errorf("absolute path of %s: %w", path, err)
		}
		path = wd + string(filepath.Separator) + path
	}

	w := &canonicalizer{}
	resolved := w.walk(string(filepath.Separator), path)
	return resolved, w.err
}

type canonicalizer struct {
	hops int
	err  error
}

func (c *canonicalizer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// walk applies the components of rest to the already canonical cur.
func (c *canonicalizer) walk(cur, rest string) string {
	for _, name := range strings.Split(rest, string(filepath.Separator)) {
		switch name {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
			continue
		}

		next := filepath.Join(cur, name)
		info, err := os.Lstat(next)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				c.fail(err)
			}
			cur = next
			continue
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			cur = next
			continue
		}

		if c.hops >= maxSymlinks {
			c.fail(fmt.Errorf("%s: too many levels of symbolic links", next))
			cur = next
			continue
		}
		target, err := os.Readlink(next)
		if err != nil {
			c.fail(err)
			cur = next
			continue
		}
		c.hops++

		if filepath.IsAbs(target) {
			cur = c.walk(string(filepath.Separator), target)
		} else {
			cur = c.walk(cur, target)
		}
	}
	return cur
}

// CanonicalRoot canonicalizes a configured root directory and checks that it
// exists.
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("absolute path of root %s: %w", root, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", resolved)
	}

	return resolved, nil
}

// Within reports whether path is root or lies beneath it.
//
// The comparison is a prefix check on whole path components: with root
// /srv/gopher, /srv/gopher2 is outside.
func Within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
