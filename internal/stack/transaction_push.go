package stack

import (
	"fmt"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/signature"
	"github.com/aelgogary/stgit/internal/stackerrors"
	"github.com/aelgogary/stgit/internal/stupid"
)

// pushTempIndex tracks which tree a scoped temp index currently mirrors,
// so push_patch/check_merged can skip redundant reloads.
type pushTempIndex struct {
	index    stupid.Index
	treeID   stupid.OID
	isLoaded bool
}

func (p *pushTempIndex) ensure(tree stupid.OID) error {
	if p.isLoaded && p.treeID == tree {
		return nil
	}
	if err := p.index.ReadTree(tree); err != nil {
		return err
	}
	p.treeID = tree
	p.isLoaded = true
	return nil
}

func (p *pushTempIndex) invalidate() {
	p.isLoaded = false
}

// PushPatches pushes each of names in order using three-way merge logic.
// If checkMerged is set, check_merged() runs first to mark patches whose
// diff is already present in the branch head's tree as AlreadyMerged. The
// entire loop runs inside one scoped temporary index acquisition. Stops at
// the first conflict or failure, without processing later names: conflicts
// and merge refusals come back as a *stackerrors.TransactionHalt, other
// failures as the underlying error.
func (t *StackTransaction) PushPatches(names []patchname.Name, checkMerged bool) error {
	if len(names) == 0 {
		return nil
	}
	return t.ctx.WithTempIndex(func(idx stupid.Index) error {
		pti := &pushTempIndex{index: idx}

		alreadyMerged := make(map[patchname.Name]bool)
		if checkMerged {
			merged, err := t.checkMerged(pti, names)
			if err != nil {
				return err
			}
			for _, n := range merged {
				alreadyMerged[n] = true
			}
		}

		for i, name := range names {
			isLast := i == len(names)-1
			if err := t.pushPatch(pti, name, isLast, alreadyMerged[name]); err != nil {
				return t.halt(err)
			}
		}
		return nil
	})
}

// checkMerged detects, scanning names in reverse, which patches' diffs are
// already present in the branch head's tree. It loads the temp index with
// the branch head tree once, then for each name (reverse order) tries
// applying the diff patch.tree -> parent.tree onto the temp index:
// reversing the patch and finding the tree unchanged indicates the change
// is already upstream. A clean apply invalidates the temp index (so the
// next iteration reloads) and records the patch as merged.
func (t *StackTransaction) checkMerged(pti *pushTempIndex, names []patchname.Name) ([]patchname.Name, error) {
	headCommit, err := t.ctx.FindCommit(t.Head())
	if err != nil {
		return nil, err
	}
	head := headCommit.TreeID
	if err := pti.ensure(head); err != nil {
		return nil, err
	}

	var merged []patchname.Name
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		ps, ok := t.Patch(name)
		if !ok {
			return nil, stackerrors.NewPatchNotFoundError(name.String())
		}
		commit, err := t.ctx.FindCommit(ps.Commit)
		if err != nil {
			return nil, err
		}
		parentID, _ := commit.Parent(0)
		parentCommit, err := t.ctx.FindCommit(parentID)
		if err != nil {
			return nil, err
		}
		if commit.TreeID == parentCommit.TreeID {
			continue
		}
		if err := pti.ensure(head); err != nil {
			return nil, err
		}
		clean, err := pti.index.ApplyTreeDiffToIndex(commit.TreeID, parentCommit.TreeID)
		if err != nil {
			return nil, err
		}
		if clean {
			merged = append(merged, name)
			pti.invalidate()
			t.ui.PrintMerged([]patchname.Name{name})
		}
	}
	return merged, nil
}

// pushPatch implements the §4.3 push_patch algorithm for one patch.
func (t *StackTransaction) pushPatch(pti *pushTempIndex, name patchname.Name, isLast, alreadyMerged bool) error {
	var listErr error
	if !containsName(t.unapplied, name) && !containsName(t.hidden, name) {
		listErr = stackerrors.NewPatchNotFoundError(name.String())
	}
	if listErr != nil {
		return listErr
	}

	ps, ok := t.Patch(name)
	if !ok {
		return stackerrors.NewPatchNotFoundError(name.String())
	}
	patchCommit, err := t.ctx.FindCommit(ps.Commit)
	if err != nil {
		return err
	}
	oldParentID, _ := patchCommit.Parent(0)
	oldParent, err := t.ctx.FindCommit(oldParentID)
	if err != nil {
		return err
	}
	newParentID := t.Top()
	newParent, err := t.ctx.FindCommit(newParentID)
	if err != nil {
		return err
	}

	baseTree := oldParent.TreeID
	status := StatusUnmodified
	var newTree stupid.OID
	conflicted := false

	switch {
	case alreadyMerged:
		newTree = newParent.TreeID
		status = StatusAlreadyMerged
	case oldParent.TreeID == newParent.TreeID:
		newTree = patchCommit.TreeID
	case oldParent.TreeID == patchCommit.TreeID:
		newTree = newParent.TreeID
	case newParent.TreeID == patchCommit.TreeID:
		newTree = patchCommit.TreeID
	default:
		ours, theirs := newParent.TreeID, patchCommit.TreeID
		if pti.isLoaded && pti.treeID == patchCommit.TreeID {
			ours, theirs = patchCommit.TreeID, newParent.TreeID
		}
		if err := pti.ensure(ours); err != nil {
			return err
		}
		clean, err := pti.index.ApplyTreeDiffToIndex(baseTree, theirs)
		if err != nil {
			return err
		}
		if clean {
			newTree, err = pti.index.WriteTree()
			if err != nil {
				return err
			}
			pti.treeID = newTree
		} else if !t.options.UseIndexAndWorktree {
			return stackerrors.NewHalt(fmt.Sprintf("%s does not apply cleanly", name))
		} else {
			pti.invalidate()
			if err := t.ctx.ReadTreeCheckout(t.currentTreeID, ours); err != nil {
				return stackerrors.NewHalt("index/worktree dirty: " + err.Error())
			}
			t.currentTreeID = ours
			clean, err := t.ctx.MergeRecursiveOrMergetool(baseTree, ours, theirs, t.options.UseMergetool)
			if err != nil {
				return stackerrors.NewHalt(err.Error())
			}
			if clean {
				// MergeRecursiveOrMergetool ran against the real
				// worktree/index, not pti's temp index, so the result
				// must be read back from the primary index.
				newTree, err = t.ctx.PrimaryIndex().WriteTree()
				if err != nil {
					return stackerrors.NewHalt(err.Error())
				}
				t.currentTreeID = newTree
				status = StatusModified
			} else {
				newTree = ours
				status = StatusConflict
				conflicted = true
			}
		}
	}

	newCommitID := ps.Commit
	if newTree != patchCommit.TreeID || newParentID != oldParentID {
		author, err := patchCommit.AuthorStrict()
		if err != nil {
			return err
		}
		author = t.options.SignatureOptions.Apply(author, false)
		cfg, err := t.ctx.Config()
		if err != nil {
			return err
		}
		committer, err := signature.DefaultCommitter(cfg)
		if err != nil {
			return err
		}
		committer = t.options.SignatureOptions.Apply(committer, true)
		newCommitID, err = t.ctx.CommitEx(author.String(), committer.String(), patchCommit.Message, newTree, []stupid.OID{newParentID})
		if err != nil {
			return err
		}
		_ = t.ctx.NotesCopy(ps.Commit, newCommitID)
		if conflicted {
			t.setHead(newCommitID)
		}
	}
	if !alreadyMerged && status != StatusConflict && newTree == newParent.TreeID {
		status = StatusEmpty
	}

	t.unapplied, _ = removeName(t.unapplied, name)
	t.hidden, _ = removeName(t.hidden, name)
	t.applied = append(t.applied, name)
	t.setPatch(name, PatchState{Commit: newCommitID})
	t.printPushed(name, status, isLast)

	if conflicted {
		t.options.ConflictMode = ConflictModeAllow
		return stackerrors.NewConflictHalt(fmt.Sprintf("%s: merge conflicts", name))
	}
	return nil
}
