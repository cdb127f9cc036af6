package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ConfigHistory keeps a local git repository tracking the deployment's
// configuration files. Every snapshot commits the current config, so a
// manifest can pin the exact configuration it was taken against.
type ConfigHistory struct {
	RepoPath string
}

// NewConfigHistory creates a history rooted at repoPath
func NewConfigHistory(repoPath string) *ConfigHistory {
	return &ConfigHistory{RepoPath: repoPath}
}

// Commit copies the config directory into the history repo and commits it.
// Returns the commit hash, or the current HEAD hash when nothing changed.
func (h *ConfigHistory) Commit(configDir, message string) (string, error) {
	repo, err := git.PlainOpen(h.RepoPath)
	if err == git.ErrRepositoryNotExists {
		if mkErr := os.MkdirAll(h.RepoPath, 0755); mkErr != nil {
			return "", fmt.Errorf("failed to create config history dir: %w", mkErr)
		}
		repo, err = git.PlainInit(h.RepoPath, false)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open config history repo: %w", err)
	}

	if err := h.syncFiles(configDir); err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage config files: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			// Fresh repo with an empty config dir; nothing to record.
			return "", nil
		}
		return head.Hash().String(), nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "docstack",
			Email: "docstack@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit config: %w", err)
	}
	return hash.String(), nil
}

// syncFiles mirrors the config directory into the repo worktree
func (h *ConfigHistory) syncFiles(configDir string) error {
	return filepath.WalkDir(configDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(configDir, path)
		if err != nil {
			return err
		}
		if rel == "." || strings.HasPrefix(rel, ".git") {
			if d.IsDir() && strings.HasPrefix(rel, ".git") {
				return filepath.SkipDir
			}
			return nil
		}

		dest := filepath.Join(h.RepoPath, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, dest)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
