package project

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"codefacts/internal/errors"
	"codefacts/internal/fsaccess"
)

// TreeOptions bounds BuildStructureTree.
type TreeOptions struct {
	// Depth is the deepest allowed level; the root is level 0. Zero means the configured default.
	Depth int `json:"depth"`
	// Exclude drops matching entries, by slash path relative to the root
	Exclude []string `json:"exclude,omitempty"`
}

type treeBuilder struct {
	s       *Scanner
	root    string
	depth   int
	exclude []string
}

// build walks dir and returns its node. A node deeper than the bound is
// an error rather than a truncated tree.
func (b *treeBuilder) build(ctx context.Context, dir, rel string, level int, modTime time.Time) (*StructureNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if level > b.depth {
		return nil, depthExceeded(dir, b.depth, level)
	}

	entries, err := b.s.access.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	node := &StructureNode{
		Kind:         NodeDirectory,
		Name:         filepath.Base(dir),
		Path:         dir,
		RelativePath: rel,
		ModTime:      modTime,
		Children:     []*StructureNode{},
	}

	for _, e := range entries {
		childPath := filepath.Join(dir, e.Name())
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}

		if e.Type()&fs.ModeSymlink != 0 {
			// Symlinked files are kept when they resolve inside the allow-list; symlinked directories are not followed
			rec, err := b.s.access.StatFile(b.root, childPath)
			if err != nil {
				b.s.logger.Debug("skipping symlink", "path", childPath, "error", err)
				continue
			}
			if fsaccess.MatchAny(b.exclude, childRel) {
				continue
			}
			if level+1 > b.depth {
				return nil, depthExceeded(childPath, b.depth, level+1)
			}
			node.Children = append(node.Children, fileNode(rec, childRel))
			node.FileCount++
			node.TotalSize += rec.Size
			continue
		}

		if e.IsDir() {
			if fsaccess.PruneDir(b.exclude, childRel) || fsaccess.MatchAny(b.exclude, childRel) {
				continue
			}
			var mod time.Time
			if fi, err := e.Info(); err == nil {
				mod = fi.ModTime()
			}
			child, err := b.build(ctx, childPath, childRel, level+1, mod)
			if err != nil {
				if errors.IsKind(err, errors.KindFileSystem) {
					b.s.logger.Warn("skipping unreadable directory", "path", childPath, "error", err)
					continue
				}
				return nil, err
			}
			node.Children = append(node.Children, child)
			node.SubdirCount++
			continue
		}

		if fsaccess.MatchAny(b.exclude, childRel) {
			continue
		}
		if level+1 > b.depth {
			return nil, depthExceeded(childPath, b.depth, level+1)
		}
		fi, err := e.Info()
		if err != nil {
			b.s.logger.Warn("skipping unreadable file", "path", childPath, "error", err)
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		node.Children = append(node.Children, &StructureNode{
			Kind:         NodeFile,
			Name:         e.Name(),
			Path:         childPath,
			RelativePath: childRel,
			ModTime:      fi.ModTime(),
			Size:         fi.Size(),
			Extension:    ext,
			Language:     fsaccess.LanguageForExtension(ext),
		})
		node.FileCount++
		node.TotalSize += fi.Size()
	}
	return node, nil
}

func fileNode(rec *fsaccess.FileRecord, rel string) *StructureNode {
	return &StructureNode{
		Kind:         NodeFile,
		Name:         rec.Name,
		Path:         rec.Path,
		RelativePath: rel,
		ModTime:      rec.ModTime,
		Size:         rec.Size,
		Extension:    rec.Extension,
		Language:     rec.Language,
	}
}

func depthExceeded(path string, max, actual int) error {
	return errors.Newf(errors.DepthExceeded, "structure deeper than %d levels", max).
		WithLimit("depth", max, actual).
		WithPath(path)
}
