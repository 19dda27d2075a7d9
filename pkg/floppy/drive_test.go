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
	"github.com/xelalexv/fluxdrive/pkg/floppy/sim"
)

//
func newTestDrive() (*floppy.Drive, *sim.Mechanism) {
	mech := sim.NewMechanism()
	return floppy.NewDrive(
		mech.Lines(), &sim.Clock{}, floppy.DefaultTiming()), mech
}

//
func TestHoming(t *testing.T) {

	drive, mech := newTestDrive()
	require.False(t, drive.Position().IsKnown())

	require.NoError(t, drive.FindTrack0())

	track, known := drive.Position().Track()
	require.True(t, known)
	require.Equal(t, 0, track)
	require.Equal(t, 0, mech.Track)

	// off the home stop first, then back out
	require.Equal(t, 4, mech.SeeksIn)
	require.Equal(t, 4, mech.SeeksOut)
}

//
func TestHomingExhaustsStepBudget(t *testing.T) {

	drive, mech := newTestDrive()
	mech.HomeSensorStuck = true

	err := drive.FindTrack0()
	require.True(t, errors.Is(err, floppy.ErrTrack0NotFound))
	require.False(t, drive.Position().IsKnown())

	require.Equal(t, 4, mech.SeeksIn)
	require.Equal(t, 250, mech.SeeksOut)
	require.Equal(t, 254, mech.StepPulses)
}

//
func TestSeek(t *testing.T) {

	drive, mech := newTestDrive()
	require.NoError(t, drive.FindTrack0())

	require.NoError(t, drive.SeekTo(10))
	require.Equal(t, 10, mech.Track)
	track, _ := drive.Position().Track()
	require.Equal(t, 10, track)

	require.NoError(t, drive.SeekTo(3))
	require.Equal(t, 3, mech.Track)
}

//
func TestSeekToCurrentTrackIsFree(t *testing.T) {

	drive, mech := newTestDrive()
	require.NoError(t, drive.SeekTo(7))

	pulses := mech.StepPulses
	require.NoError(t, drive.SeekTo(7))
	require.Equal(t, pulses, mech.StepPulses)

	track, _ := drive.Position().Track()
	require.Equal(t, 7, track)
}

//
func TestSeekHomesFirstWhenUnknown(t *testing.T) {

	drive, mech := newTestDrive()
	mech.Track = 42 // resting somewhere after power-up

	require.NoError(t, drive.SeekTo(5))
	require.Equal(t, 5, mech.Track)
	require.True(t, mech.SeeksOut >= 42) // homing went through track 0
}

//
func TestSeekNegative(t *testing.T) {

	drive, _ := newTestDrive()

	err := drive.SeekTo(-1)
	var inv *floppy.InvalidSeekError
	require.True(t, errors.As(err, &inv))
	require.Equal(t, -1, inv.Track)
}

// after any successful seek to t, the home sensor must agree with t == 0
func TestSeekKeepsHomeInvariant(t *testing.T) {

	drive, mech := newTestDrive()

	for _, target := range []int{0, 1, 15, 0, 79, 2, 0} {
		require.NoError(t, drive.SeekTo(target))
		require.Equal(t, target == 0, mech.Track == 0)
	}
}

//
func TestSeekDetectsLostPosition(t *testing.T) {

	drive, mech := newTestDrive()
	require.NoError(t, drive.SeekTo(5))

	// carriage slipped all the way back onto the home stop
	mech.SlippedBy = -5

	err := drive.SeekTo(5)
	var lost *floppy.PositionLostError
	require.True(t, errors.As(err, &lost))
	require.Equal(t, 5, lost.Expected)
	require.True(t, lost.AtHome)
}

//
func TestSpin(t *testing.T) {

	drive, mech := newTestDrive()
	drive.Select(true)

	require.NoError(t, drive.EngageSpin())
	require.True(t, drive.Spinning())
	require.True(t, mech.MotorOn)

	// idempotent
	require.NoError(t, drive.EngageSpin())

	drive.StopSpin()
	require.False(t, drive.Spinning())
	require.False(t, mech.MotorOn)
	drive.StopSpin()
}

//
func TestSpinTimesOutWithoutIndexPulse(t *testing.T) {

	drive, mech := newTestDrive()
	mech.NoMedia = true
	drive.Select(true)

	err := drive.EngageSpin()
	require.True(t, errors.Is(err, floppy.ErrIndexTimeout))
	require.False(t, drive.Spinning())
}

//
func TestSelectAndSide(t *testing.T) {

	drive, mech := newTestDrive()

	drive.Select(true)
	require.True(t, mech.Selected)
	require.True(t, drive.Selected())

	drive.SelectSide(1)
	require.Equal(t, 1, mech.Side)
	require.Equal(t, 1, drive.Side())

	drive.SelectSide(0)
	require.Equal(t, 0, mech.Side)

	drive.Select(false)
	require.False(t, mech.Selected)
}

// the mechanism reports ready once it is selected
func TestReadySense(t *testing.T) {

	drive, _ := newTestDrive()
	require.False(t, drive.Ready())

	drive.Select(true)
	require.True(t, drive.Ready())

	drive.Select(false)
	require.False(t, drive.Ready())
}

//
func TestWriteProtectSense(t *testing.T) {

	drive, mech := newTestDrive()
	require.False(t, drive.WriteProtected())

	mech.Protected = true
	require.True(t, drive.WriteProtected())
}
