// Package repofetcher acquires and updates a local copy of a remote
// repository and enumerates the code files within it.
package repofetcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// allowedExtensions is the closed allow-list spec.md §4.5 names.
var allowedExtensions = map[string]bool{
	".cs": true, ".java": true, ".py": true, ".js": true, ".ts": true,
	".go": true, ".cpp": true, ".c": true, ".h": true, ".hpp": true,
	".php": true, ".rb": true, ".rs": true, ".kt": true, ".scala": true,
	".swift": true, ".dart": true, ".vue": true, ".jsx": true, ".tsx": true,
}

// deniedDirs is the closed deny-list of directory names spec.md §4.5
// names.
var deniedDirs = map[string]bool{
	"node_modules": true, "bin": true, "obj": true, ".git": true,
	"packages": true, "target": true, "build": true, "dist": true,
	".next": true, ".nuxt": true, "vendor": true, "__pycache__": true,
	".pytest_cache": true, "coverage": true, ".coverage": true,
	".nyc_output": true, "bower_components": true,
}

// sanitizeInvalid is the set of characters replaced with "_" in a repo
// name before it becomes a directory name.
const sanitizeInvalid = `<>:"/\|?*`

// Sanitize turns repoName into a filesystem-safe directory name:
// characters in {<>:"/\|?*} and control characters collapse to "_",
// truncated to 100 characters.
func Sanitize(repoName string) string {
	var b strings.Builder
	for _, r := range repoName {
		if strings.ContainsRune(sanitizeInvalid, r) || r < 0x20 {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if runes := []rune(out); len(runes) > 100 {
		out = string(runes[:100])
	}
	return out
}

// Fetcher implements fetch/list_code_files/read against a base directory
// holding one subdirectory per sanitized repo name.
type Fetcher struct {
	baseDir string
}

// New builds a Fetcher rooted at baseDir. New does not touch the
// filesystem; Fetch creates baseDir if absent before cloning.
func New(baseDir string) *Fetcher {
	return &Fetcher{baseDir: baseDir}
}

// Fetch clones url into base_dir/sanitize(repoName) if absent, or pulls
// fast-forward-only if present. A non-fast-forward remote fails closed
// with FetchError rather than fabricating a merge commit.
func (f *Fetcher) Fetch(ctx context.Context, url, repoName string) (string, error) {
	localPath := filepath.Join(f.baseDir, Sanitize(repoName))

	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return "", cserrors.FetchErr("open existing clone at "+localPath, err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return "", cserrors.FetchErr("open worktree", err)
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", FastForward: true})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return "", cserrors.FetchErr("pull "+repoName, err)
		}
		return localPath, nil
	}

	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return "", cserrors.FetchErr("create base dir", err)
	}

	_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
	if err != nil {
		if errTransportAuth(err) {
			return "", cserrors.FetchErr("clone "+url+": repository requires authentication", err)
		}
		return "", cserrors.FetchErr("clone "+url, err)
	}
	return localPath, nil
}

// ListCodeFiles recursively walks localPath, returning files whose
// extension is in the allow-list and excluding any directory named in
// the deny-list.
func (f *Fetcher) ListCodeFiles(localPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if deniedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			rel, relErr := filepath.Rel(localPath, path)
			if relErr != nil {
				rel = path
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, cserrors.FetchErr("enumerate "+localPath, err)
	}
	return files, nil
}

// Read returns the verbatim contents of filePath (repo-root-relative,
// joined against the fetcher's owning repo's local path by the caller).
func (f *Fetcher) Read(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", cserrors.FetchErr("read "+filePath, err)
	}
	return string(data), nil
}

// errTransportAuth surfaces whether a transport error reflects a missing
// auth method, kept narrow to the one corner of go-git's error surface
// repofetcher's callers need to distinguish for logging.
func errTransportAuth(err error) bool {
	return err == transport.ErrAuthenticationRequired
}
