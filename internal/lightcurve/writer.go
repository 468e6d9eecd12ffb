package lightcurve

import (
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/zip"
	"github.com/sbinet/npyio"
)

// WriteArchive writes arrays to a compressed .npz archive at path. Member
// order is sorted by name so output is reproducible.
func WriteArchive(path string, arrays map[string][]float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			return fmt.Errorf("adding %s to %s: %w", name, path, err)
		}
		if err := npyio.Write(w, arrays[name]); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalising archive %s: %w", path, err)
	}
	return nil
}
