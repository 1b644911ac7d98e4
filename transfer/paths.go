package transfer

import (
	"path/filepath"
	"strings"

	"dva/models"
)

// RemotePath is the file's logical path inside the dataset
func RemotePath(f models.DataFile) string {
	if f.DirectoryLabel == "" {
		return f.Filename
	}
	return f.DirectoryLabel + "/" + f.Filename
}

// LocalPath places f under destRoot. resolvedFilename, when non-empty,
// replaces the listing's filename. Parent directories are not created.
func LocalPath(f models.DataFile, destRoot, resolvedFilename string) string {
	name := f.Filename
	if resolvedFilename != "" {
		name = resolvedFilename
	}

	parts := []string{destRoot}
	if f.DirectoryLabel != "" {
		parts = append(parts, filepath.FromSlash(f.DirectoryLabel))
	}
	return filepath.Join(append(parts, name)...)
}

// Within reports whether path names an entry strictly below root
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
