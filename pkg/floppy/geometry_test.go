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

package floppy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
)

//
func TestGeometryCapacity(t *testing.T) {

	geo := floppy.Geometry{Heads: 2, Sectors: 18, Tracks: 80, BitCellNs: 1000}
	require.NoError(t, geo.Validate())
	require.Equal(t, 2880, geo.Capacity())

	geo = floppy.Geometry{Heads: 2, Sectors: 9, Tracks: 80, BitCellNs: 2000}
	require.NoError(t, geo.Validate())
	require.Equal(t, 1440, geo.Capacity())
}

//
func TestGeometryValidation(t *testing.T) {

	geo := floppy.Geometry{Heads: 1, Sectors: 18, Tracks: 80, BitCellNs: 1000}
	err := geo.Validate()
	var unsupported *floppy.UnsupportedMediaError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, 1, unsupported.Heads)

	geo = floppy.Geometry{Heads: 2, Sectors: 0, Tracks: 80, BitCellNs: 1000}
	require.Error(t, geo.Validate())

	geo = floppy.Geometry{
		Heads: 2, Sectors: floppy.MaxSectorsPerTrack + 1, Tracks: 80,
		BitCellNs: 1000}
	require.Error(t, geo.Validate())

	geo = floppy.Geometry{Heads: 2, Sectors: 18, Tracks: 0, BitCellNs: 1000}
	require.Error(t, geo.Validate())
}
