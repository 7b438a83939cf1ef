// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

// Package efivar reads and writes EFI variables through the Linux
// efivarfs filesystem. Each variable is a file named
// <Name>-<namespace-guid> whose first four bytes are the variable's
// attribute flags, followed by the payload.
//
// efivarfs marks variable files immutable as a safeguard against
// accidental writes; the immutable flag is cleared before every write
// or delete, matching what efibootmgr and friends do.
package efivar

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultRoot is the standard efivarfs mount point.
const DefaultRoot = "/sys/firmware/efi/efivars"

// GlobalNamespace is the EFI global variable namespace GUID, home of
// BootOrder, BootNext, Boot#### and OsIndications.
const GlobalNamespace = "8be4df61-93ca-11d2-aa0d-00e098032b8c"

// Attributes are the EFI variable attribute flags stored in the
// 4-byte prefix of every efivarfs file.
type Attributes uint32

const (
	NonVolatile       Attributes = 0x00000001
	BootserviceAccess Attributes = 0x00000002
	RuntimeAccess     Attributes = 0x00000004

	// DefaultAttributes is what boot manager variables use:
	// persistent and visible to both boot services and the OS.
	DefaultAttributes = NonVolatile | BootserviceAccess | RuntimeAccess
)

// attributeSize is the efivarfs per-file attribute prefix length.
const attributeSize = 4

// FS accesses EFI variables under one efivarfs root. The root is a
// parameter so tests can operate on a plain directory.
type FS struct {
	root string
}

// New returns an FS rooted at the given directory, or at DefaultRoot
// when root is empty.
func New(root string) *FS {
	if root == "" {
		root = DefaultRoot
	}
	return &FS{root: root}
}

// Supported reports whether the system exposes efivarfs, i.e. whether
// it booted via UEFI with the filesystem mounted.
func (f *FS) Supported() bool {
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

func (f *FS) path(name string) string {
	return filepath.Join(f.root, name+"-"+GlobalNamespace)
}

// Get reads a variable from the global namespace, returning its
// payload and attributes. A missing variable returns an error
// satisfying os.IsNotExist.
func (f *FS) Get(name string) ([]byte, Attributes, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		return nil, 0, err
	}
	if len(data) < attributeSize {
		return nil, 0, fmt.Errorf("efivar: variable %s is %d bytes, shorter than the attribute prefix", name, len(data))
	}
	attributes := Attributes(binary.LittleEndian.Uint32(data))
	return data[attributeSize:], attributes, nil
}

// Set writes a variable in the global namespace, creating it if
// needed. The immutable flag on an existing variable file is cleared
// first.
func (f *FS) Set(name string, attributes Attributes, value []byte) error {
	path := f.path(name)
	if err := clearImmutable(path); err != nil {
		return fmt.Errorf("efivar: unprotecting %s: %w", name, err)
	}

	data := make([]byte, attributeSize+len(value))
	binary.LittleEndian.PutUint32(data, uint32(attributes))
	copy(data[attributeSize:], value)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("efivar: writing %s: %w", name, err)
	}
	return nil
}

// Delete removes a variable from the global namespace. Deleting a
// variable that does not exist returns an error satisfying
// os.IsNotExist.
func (f *FS) Delete(name string) error {
	path := f.path(name)
	if err := clearImmutable(path); err != nil {
		return fmt.Errorf("efivar: unprotecting %s: %w", name, err)
	}
	return os.Remove(path)
}

// List returns the names of all variables in the global namespace.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("efivar: listing %s: %w", f.root, err)
	}

	suffix := "-" + GlobalNamespace
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			names = append(names, name[:len(name)-len(suffix)])
		}
	}
	return names, nil
}

// fsImmutableFL is FS_IMMUTABLE_FL from linux/fs.h, which
// golang.org/x/sys/unix does not export.
const fsImmutableFL = 0x10

// clearImmutable drops the FS_IMMUTABLE_FL inode flag on path.
// Missing files are fine (the write will create them), as are
// filesystems that do not support the ioctl (plain directories in
// tests).
func clearImmutable(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	fd := int(file.Fd())
	flags, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		if ioctlUnsupported(err) {
			return nil
		}
		return fmt.Errorf("FS_IOC_GETFLAGS: %w", err)
	}
	if flags&fsImmutableFL == 0 {
		return nil
	}
	if err := unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, flags&^fsImmutableFL); err != nil {
		return fmt.Errorf("FS_IOC_SETFLAGS: %w", err)
	}
	return nil
}

func ioctlUnsupported(err error) bool {
	return err == unix.ENOTTY || err == unix.ENOTSUP || err == unix.EOPNOTSUPP || err == unix.EINVAL
}
