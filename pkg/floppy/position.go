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

/*
	Position is the head position as inferred from issued step pulses. It is
	either unknown, which it is after construction and while homing, or a
	known track number. There is deliberately no sentinel track value; an
	unknown position can only be turned into a known one by FindTrack0.
*/
type Position struct {
	known bool
	track int
}

//
func Unknown() Position {
	return Position{}
}

//
func Known(track int) Position {
	return Position{known: true, track: track}
}

// Track returns the inferred track number, and whether it is valid.
func (p Position) Track() (int, bool) {
	return p.track, p.known
}

//
func (p Position) IsKnown() bool {
	return p.known
}

//
func (p Position) String() string {
	if !p.known {
		return "unknown"
	}
	return fmt.Sprintf("track %d", p.track)
}
