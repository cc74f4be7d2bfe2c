package deploy

import (
	stderrors "errors"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var snapshotAuthor = object.Signature{Name: "web-builder", Email: "web-builder@localhost"}

// Snapshot commits the current state of dir, initializing a repository on
// first use. Files matched by the site's .gitignore are left out. It returns
// the new commit hash, or "" when nothing changed since the last snapshot.
func Snapshot(dir, message string, when time.Time) (string, error) {
	repo, err := git.PlainOpen(dir)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", err
	}
	if status.IsClean() {
		return "", nil
	}
	author := snapshotAuthor
	author.When = when
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &author})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}
