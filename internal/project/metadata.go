package project

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"codefacts/internal/fsaccess"
)

// GetProjectMetadata aggregates size, git and manifest facts for the project at path.
func (s *Scanner) GetProjectMetadata(ctx context.Context, path string) (*Metadata, error) {
	root, err := s.validateDir(path)
	if err != nil {
		return nil, err
	}
	return s.metadata(ctx, root, s.listOptions(ScanRequest{}))
}

func (s *Scanner) metadata(ctx context.Context, root string, opts fsaccess.ListOptions) (*Metadata, error) {
	files, err := s.access.ListFiles(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	md := &Metadata{}
	for _, f := range files {
		rec, err := s.access.StatFile(root, f)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "path", f, "error", err)
			continue
		}
		md.FileCount++
		md.TotalSize += rec.Size
		if rec.ModTime.After(md.LastModified) {
			md.LastModified = rec.ModTime
		}
	}
	if !md.LastModified.IsZero() {
		md.LastModified = md.LastModified.UTC().Truncate(time.Millisecond)
	}

	md.Git = s.gitSummary(root)
	if m := s.readManifest(root); m != nil {
		md.Name = m.Name
		md.Version = m.Version
		md.Description = m.Description
		md.License = m.License
		md.Authors = m.Authors
	}
	return md, nil
}

// gitSummary reads .git/HEAD and the ref it names. Worktrees, where .git is a
// file, are not followed.
func (s *Scanner) gitSummary(root string) *GitSummary {
	gitDir := filepath.Join(root, ".git")
	head, err := s.access.ReadText(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return nil
	}
	head = strings.TrimSpace(head)

	ref, ok := strings.CutPrefix(head, "ref: ")
	if !ok {
		return &GitSummary{Commit: head, Detached: true}
	}

	summary := &GitSummary{Branch: strings.TrimPrefix(ref, "refs/heads/")}
	if commit, err := s.access.ReadText(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		summary.Commit = strings.TrimSpace(commit)
		return summary
	}
	summary.Commit = s.packedRef(gitDir, ref)
	return summary
}

// packedRef looks a ref up in .git/packed-refs
func (s *Scanner) packedRef(gitDir, ref string) string {
	data, err := s.access.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		if sha, name, ok := strings.Cut(line, " "); ok && name == ref {
			return sha
		}
	}
	return ""
}
