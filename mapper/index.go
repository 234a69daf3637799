// elMap: a mapper execution engine for sequencing pipelines.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.

package mapper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/willf/bitset"

	"github.com/exascience/elmap/internal"
)

// FindIndexFile returns the only file in dir whose name ends in
// suffix. It is an error if there is no such file or more than one.
func FindIndexFile(dir, suffix string) (string, error) {
	files, err := internal.FilesWithSuffix(dir, suffix)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no index file with suffix %v in %v", suffix, dir)
	case 1:
		return files[0], nil
	default:
		sort.Strings(files)
		return "", fmt.Errorf("ambiguous index in %v, several files with suffix %v: %v", dir, suffix, strings.Join(files, ", "))
	}
}

// IndexPrefix returns the path of the only file in dir with the given
// suffix, with the suffix removed.
func IndexPrefix(dir, suffix string) (string, error) {
	file, err := FindIndexFile(dir, suffix)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(file, suffix), nil
}

// ValidateIndex checks that each suffix matches at least one file in dir.
func ValidateIndex(dir string, suffixes []string) error {
	names, err := internal.Directory(dir)
	if err != nil {
		return err
	}
	found := bitset.New(uint(len(suffixes)))
	for _, name := range names {
		for i, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				found.Set(uint(i))
			}
		}
	}
	if found.Count() == uint(len(suffixes)) {
		return nil
	}
	var missing []string
	for i, suffix := range suffixes {
		if !found.Test(uint(i)) {
			missing = append(missing, suffix)
		}
	}
	return fmt.Errorf("incomplete index in %v, missing files with suffix %v", dir, strings.Join(missing, ", "))
}

func uniqueSibling(name string) string {
	return name + ".tmp-" + uuid.New().String()
}

// ZipIndex stores the files of dir in a new zip archive. Without
// compression, the archive is written in stored mode.
func ZipIndex(dir, archive string, stored bool) (err error) {
	tmp := uniqueSibling(archive)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	w := zip.NewWriter(f)
	method := zip.Deflate
	if stored {
		method = zip.Store
	}
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = method
		out, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(out, in)
		return err
	})
	if err != nil {
		_ = w.Close()
		_ = f.Close()
		return err
	}
	if err = w.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, archive)
}

// UnzipIndex extracts archive into dir, which is created.
func UnzipIndex(archive, dir string) (err error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := r.Close(); err == nil {
			err = nerr
		}
	}()
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, file := range r.File {
		name := filepath.FromSlash(file.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("invalid file name %v in index archive %v", file.Name, archive)
		}
		target := filepath.Join(dir, name)
		if file.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err = extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) (err error) {
	if err = os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := out.Close(); err == nil {
			err = nerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
