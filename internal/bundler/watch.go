package bundler

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounce groups the bursts of events editors produce on save
const debounce = 100 * time.Millisecond

// BuildHandler receives the outcome of every bundle run by Watch
type BuildHandler func(*Result, error)

// Watch bundles opts once and again whenever a source file in the project
// changes, until ctx is done. The output directory and node_modules are not watched.
func (b *Bundler) Watch(ctx context.Context, opts Options, onBuild BuildHandler) error {
	dir, err := projectDir(opts.Dir)
	if err != nil {
		return err
	}
	opts.Dir = dir

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	outdir := opts.Outdir
	if outdir == "" {
		outdir = "dist"
	}
	if !filepath.IsAbs(outdir) {
		outdir = filepath.Join(dir, outdir)
	}
	if err := addTree(watcher, dir, outdir); err != nil {
		return err
	}

	b.log.WithField("dir", dir).Info("Watching for changes")
	onBuild(b.Bundle(ctx, opts))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if within(outdir, event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// new directories need their own watch
				_ = addTree(watcher, event.Name, outdir)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}

		case <-timer.C:
			b.log.Debug("Change detected, rebuilding")
			onBuild(b.Bundle(ctx, opts))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("File watcher error")
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root, outdir string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if within(outdir, path) || d.Name() == "node_modules" || (path != root && d.Name()[0] == '.') {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel))
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
