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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/sim"
)

// standard 1.44MB layout
var testGeo = floppy.Geometry{
	Heads: 2, Sectors: 18, Tracks: 80, BitCellNs: 1000}

//
func newTestDevice(t *testing.T, keep bool) (
	*Device, *sim.Mechanism, *sim.Decoder) {

	mech := sim.NewMechanism()
	drive := floppy.NewDrive(
		mech.Lines(), &sim.Clock{}, floppy.DefaultTiming())

	dec := sim.NewDecoder(mech, testGeo.Sectors)
	dec.Fill(testGeo.Tracks, testGeo.Heads)

	dev, err := New(drive, dec, testGeo, keep)
	require.NoError(t, err)
	return dev, mech, dec
}

//
func TestCount(t *testing.T) {
	dev, _, _ := newTestDevice(t, true)
	require.Equal(t, 2880, dev.Count())
}

//
func TestTranslation(t *testing.T) {

	dev, _, _ := newTestDevice(t, true)

	track, side, sector, err := dev.chs(37)
	require.NoError(t, err)
	require.Equal(t, 1, track)
	require.Equal(t, 0, side)
	require.Equal(t, 1, sector)

	// and back
	require.Equal(t, 37,
		(track*testGeo.Heads+side)*testGeo.Sectors+sector)

	// the sim stamps each sector with its address
	buf := make([]byte, floppy.SectorSize)
	require.NoError(t, dev.ReadBlocks(37, buf))
	require.Equal(t, "T01S0R01", string(buf[:8]))

	// block on the second side
	require.NoError(t, dev.ReadBlocks(19, buf))
	require.Equal(t, "T00S1R01", string(buf[:8]))
}

//
func TestBoundary(t *testing.T) {

	dev, _, _ := newTestDevice(t, true)
	buf := make([]byte, floppy.SectorSize)

	require.NoError(t, dev.ReadBlocks(2879, buf))

	err := dev.ReadBlocks(2880, buf)
	var oor *floppy.OutOfRangeError
	require.True(t, errors.As(err, &oor))
	require.Equal(t, 2880, oor.Block)
	require.Equal(t, 2880, oor.Capacity)
}

//
func TestWriteRejected(t *testing.T) {

	dev, _, _ := newTestDevice(t, true)

	require.True(t, errors.Is(
		dev.WriteBlocks(0, make([]byte, 512)), floppy.ErrReadOnly))
	require.True(t, errors.Is(
		dev.WriteBlocks(9999, nil), floppy.ErrReadOnly))
	require.NoError(t, dev.Sync())
}

//
func TestTrackCache(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)
	buf := make([]byte, floppy.SectorSize)

	// track 0, side 0 was primed at construction
	require.Equal(t, 1, dec.DecodesFor[[2]int{0, 0}])

	// first read off track 1 decodes it
	require.NoError(t, dev.ReadBlocks(36, buf))
	require.Equal(t, 1, dec.DecodesFor[[2]int{1, 0}])

	// back to track 0: pinned slot, no redecode
	require.NoError(t, dev.ReadBlocks(0, buf))
	require.Equal(t, 1, dec.DecodesFor[[2]int{0, 0}])

	// another block of track 1: still cached
	require.NoError(t, dev.ReadBlocks(40, buf))
	require.Equal(t, 1, dec.DecodesFor[[2]int{1, 0}])

	// a third track evicts track 1 from the general slot
	require.NoError(t, dev.ReadBlocks(72, buf))
	require.Equal(t, 1, dec.DecodesFor[[2]int{2, 0}])

	require.NoError(t, dev.ReadBlocks(36, buf))
	require.Equal(t, 2, dec.DecodesFor[[2]int{1, 0}])
}

//
func TestDecodeRetry(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)

	// first two attempts on any track come back all invalid
	dec.Invalid = func(track, side, sector, attempt int) bool {
		return attempt < 2
	}

	buf := make([]byte, floppy.SectorSize)
	require.NoError(t, dev.ReadBlocks(3*36, buf))
	require.Equal(t, "T03S0R00", string(buf[:8]))
	require.Equal(t, 3, dec.DecodesFor[[2]int{3, 0}])
}

//
func TestPartialValidityIsPerSector(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)

	// sector 7 of track 4, side 0 never decodes
	dec.Invalid = func(track, side, sector, attempt int) bool {
		return track == 4 && side == 0 && sector == 7
	}

	buf := make([]byte, floppy.SectorSize)

	err := dev.ReadBlocks(4*36+7, buf)
	var bad *floppy.SectorReadError
	require.True(t, errors.As(err, &bad))
	require.Equal(t, 4, bad.Track)
	require.Equal(t, 0, bad.Side)
	require.Equal(t, 7, bad.Sector)

	// the rest of the track reads fine, and from cache: the retry budget
	// was spent during the first read
	require.Equal(t, trackReadRetries, dec.DecodesFor[[2]int{4, 0}])
	require.NoError(t, dev.ReadBlocks(4*36+8, buf))
	require.Equal(t, trackReadRetries, dec.DecodesFor[[2]int{4, 0}])
}

//
func TestTransientCaptureErrorSurfaces(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)

	dec.FailCapture = func(capture int) error {
		return fmt.Errorf("flux sampler overrun")
	}

	buf := make([]byte, floppy.SectorSize)
	err := dev.ReadBlocks(5*36, buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "flux sampler overrun")
}

//
func TestMultiBlockReadNamesFailingBlock(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)

	dec.Invalid = func(track, side, sector, attempt int) bool {
		return track == 1 && sector == 2
	}

	// blocks 36..38 span the bad sector
	buf := make([]byte, 3*floppy.SectorSize)
	err := dev.ReadBlocks(36, buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "block 38")

	// blocks before the failure were delivered
	require.Equal(t, "T01S0R00", string(buf[:8]))
	require.Equal(t, "T01S0R01", string(buf[512:520]))
}

//
func TestDiskChanged(t *testing.T) {

	dev, _, dec := newTestDevice(t, true)
	buf := make([]byte, floppy.SectorSize)

	require.NoError(t, dev.ReadBlocks(36, buf))
	require.Equal(t, 1, dec.DecodesFor[[2]int{1, 0}])

	require.NoError(t, dev.DiskChanged())
	require.Equal(t, 2, dec.DecodesFor[[2]int{0, 0}])

	// general slot was dropped, the next read off track 1 redecodes
	require.NoError(t, dev.ReadBlocks(36, buf))
	require.Equal(t, 2, dec.DecodesFor[[2]int{1, 0}])
}

//
func TestKeepSelectedPolicy(t *testing.T) {

	// holding the drive across operations
	dev, mech, _ := newTestDevice(t, true)
	buf := make([]byte, floppy.SectorSize)

	require.NoError(t, dev.ReadBlocks(36, buf))
	require.True(t, mech.Selected)
	require.True(t, mech.MotorOn)

	// releasing it after each operation
	dev, mech, _ = newTestDevice(t, false)
	require.False(t, mech.Selected)
	require.False(t, mech.MotorOn)

	require.NoError(t, dev.ReadBlocks(36, buf))
	require.False(t, mech.Selected)
	require.False(t, mech.MotorOn)
}
