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

/*
	Line is a single digital control or sense line on the drive interface.
	Sense lines are pulled up, so an inactive sense line reads true. All of
	the drive's control logic is active low on the physical interface; the
	methods here deal in raw line levels, any inversion is up to the caller.
*/
type Line interface {
	Read() bool
	Write(bool)
}

// OptionalLine is a line that may be absent on a given cabling variant.
// Presence is decided once, at construction, not by a nil check later on.
type OptionalLine struct {
	Line    Line
	Present bool
}

// Lines collects all control and sense lines of one drive mechanism.
type Lines struct {
	//
	Density   Line
	Index     Line
	Select    Line
	Motor     Line
	Direction Line
	Step      Line
	Track0    Line
	Protect   Line
	ReadData  Line
	Side      Line
	Ready     Line
	// write path; absent on read-only cabling
	WriteData OptionalLine
	WriteGate OptionalLine
	// auxiliary buffer control on bridge boards that gate the bus
	BusDirection OptionalLine
	BusEnable    OptionalLine
}
