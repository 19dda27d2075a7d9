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

package control

import (
	"fmt"
)

//
type Status struct {
	Heads          int    `json:"heads"`
	Sectors        int    `json:"sectors"`
	Tracks         int    `json:"tracks"`
	BitCellNs      int    `json:"bitCellNs"`
	Blocks         int    `json:"blocks"`
	Position       string `json:"position"`
	Selected       bool   `json:"selected"`
	Spinning       bool   `json:"spinning"`
	Ready          bool   `json:"ready"`
	WriteProtected bool   `json:"writeProtected"`
	KeepSelected   bool   `json:"keepSelected"`
}

//
func (s *Status) String() string {
	return fmt.Sprintf(`
geometry:        %d heads, %d sectors, %d tracks (%d ns bit cell)
capacity:        %d blocks (%d KiB)
head position:   %s
selected:        %v
spinning:        %v
ready:           %v
write protected: %v
keep selected:   %v
`, s.Heads, s.Sectors, s.Tracks, s.BitCellNs, s.Blocks, s.Blocks/2,
		s.Position, s.Selected, s.Spinning, s.Ready, s.WriteProtected,
		s.KeepSelected)
}
