/*
   FluxDrive - MFM floppy disk drive interface
   Copyright (c) 2024, Alexander Vollschwitz

   This file is part of FluxDrive.

   FluxDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   FluxDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with FluxDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package format

import (
	"encoding/binary"
)

// BIOS parameter block offsets in the boot sector, all little endian
const (
	bpbTotalSectors16  = 19 // uint16, 0 on large media
	bpbSectorsPerTrack = 24 // uint16
	bpbHeads           = 26 // uint16
	bpbTotalSectors32  = 32 // uint32, used when the 16 bit count is 0
	bootSignature      = 510
)

//
func signatureOK(sec []byte) bool {
	return sec[bootSignature] == 0x55 && sec[bootSignature+1] == 0xaa
}

//
func headCount(sec []byte) int {
	return int(binary.LittleEndian.Uint16(sec[bpbHeads:]))
}

//
func sectorsPerTrack(sec []byte) int {
	return int(binary.LittleEndian.Uint16(sec[bpbSectorsPerTrack:]))
}

//
func totalSectors(sec []byte) int {
	if n := binary.LittleEndian.Uint16(sec[bpbTotalSectors16:]); n != 0 {
		return int(n)
	}
	return int(binary.LittleEndian.Uint32(sec[bpbTotalSectors32:]))
}
