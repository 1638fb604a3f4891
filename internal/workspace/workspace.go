// Package workspace scaffolds the project directory of a conversion run.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// STLDir is the output subdirectory created inside every workspace.
const STLDir = "STL"

// Workspace is a prepared project directory.
type Workspace struct {
	Root   string
	STL    string
	Copied []string // base files copied by the last Setup, by name
}

// Setup creates dir, copies the regular files found directly in baseDir
// into it, and creates dir/STL. An empty baseDir copies nothing. Running
// Setup again overwrites the copies and leaves other content alone.
func Setup(dir, baseDir string) (*Workspace, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace: empty directory name")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}

	ws := &Workspace{Root: dir, STL: filepath.Join(dir, STLDir)}

	if baseDir != "" {
		entries, err := os.ReadDir(baseDir)
		if err != nil {
			return nil, fmt.Errorf("workspace: read base dir %s: %w", baseDir, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if err := copyFile(filepath.Join(baseDir, e.Name()), filepath.Join(dir, e.Name())); err != nil {
				return nil, fmt.Errorf("workspace: copy %s: %w", e.Name(), err)
			}
			ws.Copied = append(ws.Copied, e.Name())
		}
	}

	if err := os.MkdirAll(ws.STL, 0755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", ws.STL, err)
	}
	return ws, nil
}

// copyFile copies content, mode and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
