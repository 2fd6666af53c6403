// Package archive bundles the download tree into a single compressed
// backup file.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"igsaved/pkg/errors"
	"igsaved/pkg/logger"
)

// Options control what goes into the backup.
type Options struct {
	// MetadataOnly restricts the archive to the metadata directory.
	MetadataOnly bool
}

// Create walks root and writes a ZIP containing every regular file found,
// at paths relative to root's parent. Membership is deterministic (sorted
// walk, all files present at call time); any existing archive at outPath
// is overwritten. Prior downloads stay on disk regardless of the result.
func Create(root, outPath string, opts Options, log logger.Logger) error {
	if log == nil {
		log = logger.GetLogger()
	}

	files, err := collectFiles(root, opts)
	if err != nil {
		return errors.Wrap(errors.KindArchive, err, "failed to scan output tree")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(errors.KindArchive, err, "failed to create archive file")
	}

	zw := zip.NewWriter(out)

	base := filepath.Dir(root)
	for _, file := range files {
		if err := addFile(zw, base, file); err != nil {
			zw.Close()
			out.Close()
			os.Remove(outPath)
			return errors.Wrap(errors.KindArchive, err, "failed to add file to archive")
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return errors.Wrap(errors.KindArchive, err, "failed to finalize archive")
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return errors.Wrap(errors.KindArchive, err, "failed to close archive file")
	}

	info, statErr := os.Stat(outPath)
	fields := map[string]interface{}{
		"path":  outPath,
		"files": len(files),
	}
	if statErr == nil {
		fields["size_bytes"] = info.Size()
	}
	log.InfoWithFields("backup archive created", fields)

	return nil
}

// collectFiles gathers the regular files under root in sorted order.
func collectFiles(root string, opts Options) ([]string, error) {
	scanRoot := root
	if opts.MetadataOnly {
		scanRoot = filepath.Join(root, "metadata")
		if _, err := os.Stat(scanRoot); os.IsNotExist(err) {
			return nil, nil
		}
	}

	var files []string
	err := filepath.WalkDir(scanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		// A leftover temp file means an interrupted write; never
		// archive it as if it were a finished asset.
		if strings.HasSuffix(path, ".tmp") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// addFile streams one file into the archive under its path relative to
// base, with forward slashes per the ZIP spec.
func addFile(zw *zip.Writer, base, path string) error {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return fmt.Errorf("failed to compute archive name for %s: %w", path, err)
	}
	name := filepath.ToSlash(rel)

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}

	return nil
}
