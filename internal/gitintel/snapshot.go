package gitintel

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	maxSnapshotDirtyFiles = 20
	maxSnapshotCommits    = 5
)

// Snapshot is best-effort repo context for get_session_context-style
// callers, mirroring the teacher's collectGitContext shape but sourced
// from go-git instead of shelling out to the git binary.
type Snapshot struct {
	Branch      string
	LastCommits []string
	DirtyFiles  []string
	Untracked   []string
	Note        string // set when part of the snapshot could not be collected
}

// ContextSnapshot returns best-effort git metadata for repoPath. A
// corrupt/unreachable repo never returns an error: it returns a Snapshot
// with an explanatory Note, same as the teacher's nil-or-partial-result
// convention for this kind of helper.
func ContextSnapshot(repoPath string) *Snapshot {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return &Snapshot{Note: "not a git repository"}
	}

	snap := &Snapshot{}
	var notes []string

	if head, err := repo.Head(); err == nil {
		snap.Branch = head.Name().Short()
	} else {
		notes = append(notes, "branch unavailable")
	}

	if commits, err := recentCommits(repo, maxSnapshotCommits); err == nil {
		snap.LastCommits = commits
	} else {
		notes = append(notes, "commit history unavailable")
	}

	wt, err := repo.Worktree()
	if err != nil {
		notes = append(notes, "status unavailable")
	} else if status, err := wt.Status(); err != nil {
		notes = append(notes, "status unavailable")
	} else {
		for path, s := range status {
			if len(snap.DirtyFiles) >= maxSnapshotDirtyFiles && len(snap.Untracked) >= maxSnapshotDirtyFiles {
				break
			}
			if s.Worktree == git.Untracked {
				if len(snap.Untracked) < maxSnapshotDirtyFiles {
					snap.Untracked = append(snap.Untracked, path)
				}
				continue
			}
			if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
				if len(snap.DirtyFiles) < maxSnapshotDirtyFiles {
					snap.DirtyFiles = append(snap.DirtyFiles, path)
				}
			}
		}
	}

	if len(notes) > 0 {
		snap.Note = joinNotes(notes)
	}
	return snap
}

func recentCommits(repo *git.Repository, max int) ([]string, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []string
	err = iter.ForEach(func(c *object.Commit) error {
		if len(out) >= max {
			return storer.ErrStop
		}
		out = append(out, c.Hash.String()[:7]+" "+firstLine(c.Message))
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return out, err
	}
	return out, nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func joinNotes(notes []string) string {
	out := notes[0]
	for _, n := range notes[1:] {
		out += "; " + n
	}
	return out
}
