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

package blockdev

import (
	"github.com/xelalexv/fluxdrive/pkg/floppy"
)

/*
	trackSlot caches the decode result of one track side: the sector bytes
	back to back, plus one validity flag per sector. An invalidated slot
	carries the impossible tag (-1, -1), which no lookup can match.
*/
type trackSlot struct {
	track int
	side  int
	data  []byte
	valid []bool
}

//
func newTrackSlot(sectors int) *trackSlot {
	s := &trackSlot{
		data:  make([]byte, sectors*floppy.SectorSize),
		valid: make([]bool, sectors),
	}
	s.invalidate()
	return s
}

//
func (s *trackSlot) holds(track, side int) bool {
	return s.track == track && s.side == side
}

//
func (s *trackSlot) invalidate() {
	s.track = -1
	s.side = -1
	for i := range s.valid {
		s.valid[i] = false
	}
}

//
func (s *trackSlot) validCount() int {
	n := 0
	for _, v := range s.valid {
		if v {
			n++
		}
	}
	return n
}

// sector returns the cached bytes of one sector.
func (s *trackSlot) sector(ix int) []byte {
	return s.data[ix*floppy.SectorSize : (ix+1)*floppy.SectorSize]
}
