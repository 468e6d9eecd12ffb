package lightcurve

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/sbinet/npyio"
)

// ErrArrayNotFound is returned when an archive has no array of the
// requested name.
var ErrArrayNotFound = errors.New("array not found in archive")

// Archive is a read-only .npz archive: a zip file whose members are .npy
// arrays. Members are decoded on demand.
type Archive struct {
	path string

	mu      sync.Mutex
	zr      *zip.ReadCloser
	members map[string]*zip.File
}

// OpenArchive opens the archive at path and indexes its members by array
// name (member name without the .npy suffix).
func OpenArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[strings.TrimSuffix(f.Name, ".npy")] = f
	}

	return &Archive{path: path, zr: zr, members: members}, nil
}

// Path returns the file the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Names returns the sorted array names in the archive.
func (a *Archive) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.members))
	for name := range a.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Array decodes the named array as a flat float64 slice.
func (a *Archive) Array(name string) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.zr == nil {
		return nil, fmt.Errorf("archive %s is closed", a.path)
	}
	f, ok := a.members[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrArrayNotFound, name, a.path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in %s: %w", name, a.path, err)
	}
	defer rc.Close()

	var data []float64
	if err := npyio.Read(rc, &data); err != nil {
		return nil, fmt.Errorf("decoding %s in %s: %w", name, a.path, err)
	}
	return data, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.zr == nil {
		return nil
	}
	err := a.zr.Close()
	a.zr = nil
	return err
}
