// Package mmap presents a growable, mutable byte window over a regular
// file, backed by an actual mmap(2) mapping. It is the leaf component of
// the storage core: everything else addresses bytes inside the window a
// Mapper hands out.
package mmap

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/gypsocat/mtbstore/internal/consts"
	"github.com/gypsocat/mtbstore/internal/storageerr"
)

const defaultLogicalBlockSize = 65536

var logicalBlockSize atomic.Uint32

func init() {
	logicalBlockSize.Store(defaultLogicalBlockSize)
}

// LogicalBlockSize returns the process-wide block size new Mappers
// capture at construction.
func LogicalBlockSize() uint32 {
	return logicalBlockSize.Load()
}

// SetLogicalBlockSize changes the process-wide default. It rejects values
// that are not a power of two and leaves the previous value untouched.
func SetLogicalBlockSize(size uint32) bool {
	if size == 0 || size&(size-1) != 0 {
		return false
	}
	logicalBlockSize.Store(size)
	return true
}

// Mapper is a growable mmap window over a single regular file. The window
// is always file[0:size), size a whole multiple of the mapper's logical
// block. Pointer() is only valid until the next Grow.
type Mapper struct {
	path         string
	fd           int
	size         int
	logicalBlock int
	data         []byte

	growMu sync.Mutex
}

// Open creates filename (mode 0644) and extends it to one logical block if
// it does not exist, or opens it and notes its current size if it does.
// Either way the result is mapped [0, size) read-write, shared.
func Open(filename string) (*Mapper, error) {
	block := int(LogicalBlockSize())

	info, err := os.Stat(filename)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return nil, storageerr.New(storageerr.Fatal,
				fmt.Sprintf("required file %q is not regular", filename))
		}
	case os.IsNotExist(err):
		// created below, once we have the fd.
	default:
		return nil, storageerr.Wrap(storageerr.Fatal, "os.Stat", err)
	}

	fd, err := unix.Open(filename, unix.O_CREAT|unix.O_RDWR, consts.PosixAccessRight)
	if err != nil {
		return nil, storageerr.Wrap(storageerr.Fatal, "unix.Open", err)
	}

	size := 0
	if info != nil {
		size = int(info.Size())
	} else {
		if err := unix.Ftruncate(fd, int64(block)); err != nil {
			unix.Close(fd)
			return nil, storageerr.Wrap(storageerr.Fatal, "unix.Ftruncate", err)
		}
		size = block
	}

	m := &Mapper{
		path:         filename,
		fd:           fd,
		size:         size,
		logicalBlock: block,
	}

	if err := m.mapCurrent(); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return m, nil
}

func (m *Mapper) mapCurrent() error {
	data, err := unix.Mmap(m.fd, 0, m.size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Mmap", err)
	}
	m.data = data
	return nil
}

// Pointer returns the mapped byte slice. It is valid only until the next
// Grow; callers must re-derive any offsets they hold across a Grow.
func (m *Mapper) Pointer() []byte {
	return m.data
}

// Size returns the current mapped length in bytes.
func (m *Mapper) Size() int {
	return m.size
}

// LogicalBlock returns the block size captured when this mapper was
// opened.
func (m *Mapper) LogicalBlock() int {
	return m.logicalBlock
}

// Grow extends the mapping by exactly one logical block, blocking until
// any concurrent grow finishes.
func (m *Mapper) Grow() error {
	m.growMu.Lock()
	defer m.growMu.Unlock()
	return m.growLocked()
}

// TryGrow behaves like Grow but returns false instead of blocking if
// another goroutine is already growing this mapper.
func (m *Mapper) TryGrow() (bool, error) {
	if !m.growMu.TryLock() {
		return false, nil
	}
	defer m.growMu.Unlock()
	if err := m.growLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mapper) growLocked() error {
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Msync", err)
	}
	if err := unix.Munmap(m.data); err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Munmap", err)
	}
	m.data = nil

	newSize := m.size + m.logicalBlock
	if err := unix.Ftruncate(m.fd, int64(newSize)); err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Ftruncate", err)
	}
	m.size = newSize

	return m.mapCurrent()
}

// GrowUntil grows the mapper one block at a time until size bytes are
// addressable, per the core's "grow before a write that would otherwise
// fall outside the window" policy.
func (m *Mapper) GrowUntil(size int) error {
	for m.Size() < size {
		if err := m.Grow(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes, unmaps, and closes the underlying descriptor.
func (m *Mapper) Close() error {
	if m.data != nil {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
			return storageerr.Wrap(storageerr.Fatal, "unix.Msync", err)
		}
		if err := unix.Munmap(m.data); err != nil {
			return storageerr.Wrap(storageerr.Fatal, "unix.Munmap", err)
		}
		m.data = nil
	}
	if err := unix.Close(m.fd); err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Close", err)
	}
	return nil
}

// Flush syncs the current mapping to disk without unmapping it.
func (m *Mapper) Flush() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return storageerr.Wrap(storageerr.Fatal, "unix.Msync", err)
	}
	return nil
}

// Path returns the file this mapper is backed by.
func (m *Mapper) Path() string {
	return m.path
}
