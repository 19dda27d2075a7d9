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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/sim"
)

// bootSector builds a minimal BPB with the given layout fields.
func bootSector(heads, sectors, total int, signed bool) []byte {
	sec := make([]byte, floppy.SectorSize)
	binary.LittleEndian.PutUint16(sec[bpbTotalSectors16:], uint16(total))
	binary.LittleEndian.PutUint16(sec[bpbSectorsPerTrack:], uint16(sectors))
	binary.LittleEndian.PutUint16(sec[bpbHeads:], uint16(heads))
	if signed {
		sec[510] = 0x55
		sec[511] = 0xaa
	}
	return sec
}

//
func newTestRig(bitCellNs int) (*floppy.Drive, *sim.Mechanism, *sim.Decoder) {
	mech := sim.NewMechanism()
	drive := floppy.NewDrive(
		mech.Lines(), &sim.Clock{}, floppy.DefaultTiming())
	dec := sim.NewDecoder(mech, 18)
	dec.BitCellNs = bitCellNs
	return drive, mech, dec
}

//
func TestDetect(t *testing.T) {

	drive, mech, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(2, 18, 2880, true))

	geo, err := Detect(drive, dec, false)
	require.NoError(t, err)
	require.Equal(t, floppy.Geometry{
		Heads: 2, Sectors: 18, Tracks: 80, BitCellNs: 1000}, geo)

	// head parked over track 0 after the settle seek, drive released again
	require.Equal(t, 0, mech.Track)
	require.False(t, mech.MotorOn)
	require.False(t, mech.Selected)
}

// speed-mismatched media is only found by the later hypotheses
func TestDetectSpeedMismatchedMedia(t *testing.T) {

	drive, _, dec := newTestRig(1667)
	dec.SetBootSector(bootSector(2, 9, 1440, true))

	geo, err := Detect(drive, dec, true)
	require.NoError(t, err)
	require.Equal(t, floppy.Geometry{
		Heads: 2, Sectors: 9, Tracks: 80, BitCellNs: 1667}, geo)
}

//
func TestDetectHonorsKeepSelected(t *testing.T) {

	drive, mech, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(2, 18, 2880, true))

	_, err := Detect(drive, dec, true)
	require.NoError(t, err)
	require.True(t, mech.MotorOn)
	require.True(t, mech.Selected)
}

//
func TestDetectRejectsMissingSignature(t *testing.T) {

	drive, _, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(2, 18, 2880, false))

	_, err := Detect(drive, dec, false)
	var det *floppy.FormatDetectionError
	require.True(t, errors.As(err, &det))
	require.Nil(t, det.Last)

	// every capture attempt was used up
	require.Equal(t, detectAttempts, dec.Captures)
}

//
func TestDetectRejectsWrongHeadCount(t *testing.T) {

	drive, _, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(1, 9, 720, true))

	_, err := Detect(drive, dec, false)
	var unsupported *floppy.UnsupportedMediaError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, 1, unsupported.Heads)
}

//
func TestDetectRoundsUpPartialCylinder(t *testing.T) {

	drive, _, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(2, 18, 2890, true))

	geo, err := Detect(drive, dec, false)
	require.NoError(t, err)
	require.Equal(t, 81, geo.Tracks)
}

//
func TestDetectSurfacesLastCaptureError(t *testing.T) {

	drive, _, dec := newTestRig(1000)
	dec.SetBootSector(bootSector(2, 18, 2880, true))
	dec.FailCapture = func(capture int) error {
		return fmt.Errorf("flux sampler overrun")
	}

	_, err := Detect(drive, dec, false)
	var det *floppy.FormatDetectionError
	require.True(t, errors.As(err, &det))
	require.Error(t, det.Last)
	require.Contains(t, det.Last.Error(), "flux sampler overrun")
}
