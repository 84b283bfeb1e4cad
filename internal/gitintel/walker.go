// Package gitintel walks a repository's commit history with go-git,
// feeding the co-change and author-expertise analyzers (spec §4.G) and
// recording the commits themselves in git_commits. The walk does not
// create historical-fix rows; those come only from record_error_fix.
package gitintel

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mira-dev/mira/internal/store"
)

// WalkStats reports what IndexRepo did.
type WalkStats struct {
	CommitsIndexed int
	CommitsSkipped int
}

// IndexRepo opens the repository at repoPath and walks its commit history
// from HEAD, indexing any commit not already recorded (spec §4.G). Each
// commit's file list, co-change counters, and author stats are written in
// one transaction so a crash mid-walk never leaves them inconsistent.
func IndexRepo(db *store.DB, repoPath string, maxCommits int) (WalkStats, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return WalkStats{}, fmt.Errorf("gitintel: open %s: %w", repoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return WalkStats{}, fmt.Errorf("gitintel: resolve HEAD: %w", err)
	}

	commitIter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return WalkStats{}, fmt.Errorf("gitintel: log: %w", err)
	}
	defer commitIter.Close()

	var stats WalkStats
	err = commitIter.ForEach(func(c *object.Commit) error {
		if maxCommits > 0 && stats.CommitsIndexed+stats.CommitsSkipped >= maxCommits {
			return nil
		}
		sha := c.Hash.String()
		if db.CommitIndexed(sha) {
			stats.CommitsSkipped++
			return nil
		}

		files, lineStats, err := commitFiles(c)
		if err != nil {
			return fmt.Errorf("diff stat for %s: %w", sha, err)
		}

		filesJSON, err := json.Marshal(files)
		if err != nil {
			return err
		}

		tx, err := db.BeginTx()
		if err != nil {
			return err
		}

		commitAt := c.Author.When.Unix()
		if err := db.InsertGitCommit(tx, store.GitCommit{
			SHA: sha, Author: c.Author.Name, Message: c.Message,
			CommittedAt: commitAt, FilesJSON: string(filesJSON),
		}); err != nil {
			tx.Rollback()
			return err
		}
		if err := db.RecordCochangeCommit(tx, files); err != nil {
			tx.Rollback()
			return err
		}
		for _, f := range files {
			if err := db.RecordCommitAuthorStats(tx, c.Author.Name, f, lineStats[f], commitAt); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		stats.CommitsIndexed++
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// commitFiles returns the paths touched by c relative to its first parent
// plus each file's total lines added+removed, or all files in the tree
// with zero line counts for a root commit with no parent.
func commitFiles(c *object.Commit) ([]string, map[string]int, error) {
	if c.NumParents() == 0 {
		var files []string
		tree, err := c.Tree()
		if err != nil {
			return nil, nil, err
		}
		walker := tree.Files()
		defer walker.Close()
		for {
			f, err := walker.Next()
			if err != nil {
				break
			}
			files = append(files, f.Name)
		}
		return files, map[string]int{}, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, nil, err
	}
	patch, err := parent.Patch(c)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	lineStats := make(map[string]int)
	for _, fs := range patch.Stats() {
		lineStats[fs.Name] = fs.Addition + fs.Deletion
	}
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if to != nil {
			files = append(files, to.Path())
		} else if from != nil {
			files = append(files, from.Path())
		}
	}
	return files, lineStats, nil
}
