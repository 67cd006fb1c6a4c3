package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic пишет во временный .part и переименовывает, чтобы
// наполовину записанный файл никогда не лежал под итоговым именем.
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		// rename между разделами не работает — копируем
		if err := copyFile(tmp, path); err != nil {
			return fmt.Errorf("rename/copy %s: %w", path, err)
		}
		_ = os.Remove(tmp)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
