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

package floppy

import (
	"fmt"
)

//
const SectorSize = 512

// only double-sided mechanisms are supported
const HeadCount = 2

// capacity of the track buffers, bounds sectors per track
const MaxSectorsPerTrack = 24

/*
	Geometry describes the sector layout and bit timing of the inserted
	media. It is a plain value, produced either by format detection or
	supplied explicitly, and is immutable once handed to a block device;
	swapping media means building a new one.
*/
type Geometry struct {
	//
	Heads   int
	Sectors int
	Tracks  int
	// nominal bit cell period of the MFM encoding
	BitCellNs int
}

// Capacity returns the total number of 512 byte blocks.
func (g Geometry) Capacity() int {
	return g.Heads * g.Sectors * g.Tracks
}

//
func (g Geometry) Validate() error {
	if g.Heads != HeadCount {
		return &UnsupportedMediaError{Heads: g.Heads}
	}
	if g.Sectors < 1 || g.Sectors > MaxSectorsPerTrack {
		return fmt.Errorf("invalid sectors per track: %d, must be 1 to %d",
			g.Sectors, MaxSectorsPerTrack)
	}
	if g.Tracks < 1 {
		return fmt.Errorf("invalid track count: %d", g.Tracks)
	}
	if g.BitCellNs <= 0 {
		return fmt.Errorf("invalid bit cell period: %d ns", g.BitCellNs)
	}
	return nil
}

//
func (g Geometry) String() string {
	return fmt.Sprintf("%d heads, %d sectors, %d tracks, %d ns bit cell",
		g.Heads, g.Sectors, g.Tracks, g.BitCellNs)
}
