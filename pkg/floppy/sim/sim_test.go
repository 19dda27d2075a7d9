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

package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/flux"
)

// the decoder only yields data when the thresholds passed in match its
// configured bit cell period, like the real decode routine would
func TestDecoderThresholdMatching(t *testing.T) {

	mech := NewMechanism()
	mech.Selected = true
	mech.MotorOn = true

	dec := NewDecoder(mech, 18)
	dec.Fill(1, 1)

	sectors := make([]byte, 18*floppy.SectorSize)
	validity := make([]bool, 18)
	buf := flux.NewCaptureBuffer(18)

	n, err := dec.Capture(buf, mech.Lines().ReadData, mech.Lines().Index)
	require.NoError(t, err)
	require.True(t, n > 0)

	// wrong media timing decodes nothing
	short, long := flux.Thresholds(2000, dec.Rate)
	require.Equal(t, 0,
		dec.Decode(sectors, buf[:n], short, long, validity, true))
	for _, v := range validity {
		require.False(t, v)
	}

	// matching timing serves the whole track
	short, long = flux.Thresholds(dec.BitCellNs, dec.Rate)
	require.Equal(t, 18,
		dec.Decode(sectors, buf[:n], short, long, validity, true))
	require.Equal(t, "T00S0R00", string(sectors[:8]))
	for _, v := range validity {
		require.True(t, v)
	}
}

//
func TestCaptureNeedsSelectedSpinningDrive(t *testing.T) {

	mech := NewMechanism()
	dec := NewDecoder(mech, 18)
	buf := flux.NewCaptureBuffer(18)

	_, err := dec.Capture(buf, mech.Lines().ReadData, mech.Lines().Index)
	require.Error(t, err)
}
