package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// replaceFile swaps the catalog file for data in one rename. A crash leaves the old file intact.
func replaceFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage catalog: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("stage catalog: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("stage catalog: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("stage catalog: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// probeWritable fails when new files cannot be created in dir.
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
