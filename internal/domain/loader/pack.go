package loader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/zip"
)

// Pack writes every regular file under dir into a new bundle at out. Entries
// are stored in lexical order so equal trees produce equal archives.
func Pack(dir, out string) error {
	absOut, err := filepath.Abs(out)
	if err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absOut {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		mu.Lock()
		paths = append(paths, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files to pack in %s", dir)
	}
	slices.Sort(paths)

	return writeBundle(dir, out, paths)
}

// writeBundle archives paths (relative to dir) into out. A failed write
// leaves no file behind.
func writeBundle(dir, out string, paths []string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(out)
		}
	}()

	zw := zip.NewWriter(f)
	for _, rel := range paths {
		if err := addFile(zw, dir, rel); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return f.Sync()
}

func addFile(zw *zip.Writer, dir, rel string) error {
	src, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: rel, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", rel, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to add %s: %w", rel, err)
	}
	return nil
}
