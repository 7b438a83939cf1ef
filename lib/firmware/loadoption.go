// Copyright 2026 The Switchboot Authors
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// EFI_LOAD_OPTION attribute bits.
const (
	LoadOptionActive         uint32 = 0x00000001
	LoadOptionForceReconnect uint32 = 0x00000002
	LoadOptionHidden         uint32 = 0x00000008
	LoadOptionCategoryApp    uint32 = 0x00000100
)

// LoadOption is a decoded Boot#### variable (EFI_LOAD_OPTION). The
// device path list is kept opaque: Switchboot reorders and arms
// entries, it never rewrites where they point.
type LoadOption struct {
	Attributes  uint32
	Description string

	// FilePathList is the raw device path list bytes.
	FilePathList []byte

	// OptionalData is everything after the device path list, passed
	// to the loaded image verbatim by the firmware.
	OptionalData []byte
}

// IsActive reports the LOAD_OPTION_ACTIVE bit. Inactive entries exist
// but are skipped by the boot manager.
func (o *LoadOption) IsActive() bool {
	return o.Attributes&LoadOptionActive != 0
}

// loadOptionHeaderSize is attributes (u32) + file path list length (u16).
const loadOptionHeaderSize = 6

// ParseLoadOption decodes an EFI_LOAD_OPTION: a 6-byte header, a
// null-terminated UTF-16LE description, the device path list, then
// optional data.
func ParseLoadOption(raw []byte) (*LoadOption, error) {
	if len(raw) < loadOptionHeaderSize {
		return nil, fmt.Errorf("firmware: load option is %d bytes, shorter than its header", len(raw))
	}
	attributes := binary.LittleEndian.Uint32(raw)
	filePathListLength := int(binary.LittleEndian.Uint16(raw[4:]))

	// Description: UTF-16LE code units up to and including the null
	// terminator.
	body := raw[loadOptionHeaderSize:]
	var units []uint16
	terminated := false
	for i := 0; i+1 < len(body); i += 2 {
		unit := binary.LittleEndian.Uint16(body[i:])
		if unit == 0 {
			terminated = true
			break
		}
		units = append(units, unit)
	}
	if !terminated {
		return nil, fmt.Errorf("firmware: load option description is not null-terminated")
	}

	filePathListOffset := loadOptionHeaderSize + (len(units)+1)*2
	if filePathListOffset+filePathListLength > len(raw) {
		return nil, fmt.Errorf("firmware: load option device path list (%d bytes at offset %d) exceeds variable size %d",
			filePathListLength, filePathListOffset, len(raw))
	}

	return &LoadOption{
		Attributes:   attributes,
		Description:  string(utf16.Decode(units)),
		FilePathList: append([]byte(nil), raw[filePathListOffset:filePathListOffset+filePathListLength]...),
		OptionalData: append([]byte(nil), raw[filePathListOffset+filePathListLength:]...),
	}, nil
}

// Bytes encodes the load option back to the EFI_LOAD_OPTION layout.
// ParseLoadOption(o.Bytes()) reproduces o.
func (o *LoadOption) Bytes() []byte {
	units := utf16.Encode([]rune(o.Description))

	raw := make([]byte, loadOptionHeaderSize, loadOptionHeaderSize+(len(units)+1)*2+len(o.FilePathList)+len(o.OptionalData))
	binary.LittleEndian.PutUint32(raw, o.Attributes)
	binary.LittleEndian.PutUint16(raw[4:], uint16(len(o.FilePathList)))

	for _, unit := range append(units, 0) {
		raw = binary.LittleEndian.AppendUint16(raw, unit)
	}
	raw = append(raw, o.FilePathList...)
	raw = append(raw, o.OptionalData...)
	return raw
}
