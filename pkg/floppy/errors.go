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
	"errors"
	"fmt"
)

/*
	The fatal errors here poison the operation they were detected in, but not
	the process: after ErrTrack0NotFound or a PositionLostError, the caller
	must run FindTrack0 again before any further seek; the drive does not
	re-home on its own.
*/
var (
	// homing exhausted its step budget without the home sensor going active
	ErrTrack0NotFound = errors.New("could not reach track 0")

	// no index pulse within the timeout after motor start
	ErrIndexTimeout = errors.New("no index pulse, drive not up to speed")

	// any write attempt against the block device
	ErrReadOnly = errors.New("media is read-only")
)

// PositionLostError reports a mismatch between the inferred head position
// and the track zero sensor after a move.
type PositionLostError struct {
	Expected int
	AtHome   bool
}

//
func (e *PositionLostError) Error() string {
	return fmt.Sprintf(
		"drive lost position: expected track %d, but track 0 sensor reads %v",
		e.Expected, e.AtHome)
}

// InvalidSeekError reports a seek to a negative track number.
type InvalidSeekError struct {
	Track int
}

//
func (e *InvalidSeekError) Error() string {
	return fmt.Sprintf("invalid seek to negative track number %d", e.Track)
}

// OutOfRangeError reports a block number at or beyond device capacity.
type OutOfRangeError struct {
	Block    int
	Capacity int
}

//
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf(
		"block %d out of range, device has %d blocks", e.Block, e.Capacity)
}

// SectorReadError reports a sector whose decode never produced valid data.
type SectorReadError struct {
	Track  int
	Side   int
	Sector int
}

//
func (e *SectorReadError) Error() string {
	return fmt.Sprintf("no valid data for track %d, side %d, sector %d",
		e.Track, e.Side, e.Sector)
}

// UnsupportedMediaError reports media whose head count the driver cannot
// handle.
type UnsupportedMediaError struct {
	Heads int
}

//
func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf(
		"unsupported media: %d heads, only %d supported", e.Heads, HeadCount)
}

// FormatDetectionError reports that no timing hypothesis matched the boot
// sector. Last carries the most recent transient capture error, if any
// occurred along the way.
type FormatDetectionError struct {
	Last error
}

//
func (e *FormatDetectionError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("could not detect disk format, last capture "+
			"error: %v", e.Last)
	}
	return "could not detect disk format"
}

//
func (e *FormatDetectionError) Unwrap() error {
	return e.Last
}
