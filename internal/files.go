package internal

import (
	"os"
	"path/filepath"
	"strings"
)

// Directory returns the names of the entries of the given directory,
// or the base name of file if it is not a directory.
func Directory(file string) (files []string, err error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Base(file)}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		nerr := f.Close()
		if err == nil {
			err = nerr
		}
	}()
	return f.Readdirnames(0)
}

// FilesWithSuffix returns the full paths of the entries of dir whose
// names end in suffix.
func FilesWithSuffix(dir, suffix string) ([]string, error) {
	names, err := Directory(dir)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			result = append(result, filepath.Join(dir, name))
		}
	}
	return result, nil
}

// IsExecutableFile reports whether filename is a regular file with at
// least one execute bit set.
func IsExecutableFile(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
