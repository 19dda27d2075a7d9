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
	log "github.com/sirupsen/logrus"
)

// direction line levels; low steps the head inward, toward higher tracks
const (
	stepIn  = false
	stepOut = true
)

// pulses to force the head off the home position before homing proper
const homingOffset = 4

// outward step budget during homing
const homingSteps = 250

/*
	Timing holds the settle intervals of the mechanism, in milliseconds.
	These vary across drive generations; half-height 5¼" mechanisms have
	been seen to need 100 ms between step pulses where later 3½" ones are
	happy with 10 ms.
*/
type Timing struct {
	// step pulse width, also the spacing between pulses
	StepDelayMs int
	// wait after motor start before looking for index pulses
	MotorSettleMs int
	// how long to look for an index pulse before giving up
	IndexTimeoutMs int
}

//
func DefaultTiming() Timing {
	return Timing{
		StepDelayMs:    100,
		MotorSettleMs:  1000,
		IndexTimeoutMs: 10000,
	}
}

/*
	Drive owns the control and sense lines of one floppy mechanism and
	tracks the head position inferred from the step pulses it has issued.
	It is not safe for concurrent use; callers with more than one goroutine
	must serialize access themselves.
*/
type Drive struct {
	//
	lines  Lines
	clock  Clock
	timing Timing
	//
	pos      Position
	selected bool
	spinning bool
	side     int
}

//
func NewDrive(lines Lines, clock Clock, timing Timing) *Drive {
	return &Drive{
		lines:  lines,
		clock:  clock,
		timing: timing,
		pos:    Unknown(),
	}
}

// Position returns the inferred head position.
func (d *Drive) Position() Position {
	return d.pos
}

//
func (d *Drive) Selected() bool {
	return d.selected
}

// Select asserts or releases the drive select line. The drive must be
// selected before any motor, seek, or capture operation.
func (d *Drive) Select(on bool) {
	d.lines.Select.Write(!on)
	d.selected = on
}

//
func (d *Drive) Spinning() bool {
	return d.spinning
}

/*
	EngageSpin starts the spindle motor. It waits out the spin-up settle
	interval and then insists on seeing an index pulse before returning, so
	a successful return means the media is actually turning at speed. A
	drive that is already spinning is left alone. This blocks for at least
	the motor settle interval, worst case settle plus index timeout.
*/
func (d *Drive) EngageSpin() error {

	if d.spinning {
		return nil
	}

	log.Debug("starting spindle motor")
	d.lines.Motor.Write(false)
	sleep(d.clock, d.timing.MotorSettleMs)

	deadline := d.clock.Add(d.clock.Now(), d.timing.IndexTimeoutMs)
	for d.clock.Less(d.clock.Now(), deadline) {
		if !d.lines.Index.Read() {
			d.spinning = true
			return nil
		}
	}

	return ErrIndexTimeout
}

// StopSpin stops the spindle motor immediately. Idempotent.
func (d *Drive) StopSpin() {
	if d.spinning {
		log.Debug("stopping spindle motor")
	}
	d.lines.Motor.Write(true)
	d.spinning = false
}

//
func (d *Drive) Side() int {
	return d.side
}

// SelectSide sets the side (0 or 1) for subsequent captures. The side line
// must be stable before capturing flux.
func (d *Drive) SelectSide(side int) {
	d.lines.Side.Write(side == 0)
	d.side = side & 1
}

// WriteProtected reports the state of the write protect sensor.
func (d *Drive) WriteProtected() bool {
	return !d.lines.Protect.Read()
}

//
func (d *Drive) Ready() bool {
	return !d.lines.Ready.Read()
}

// atHome reports whether the track zero sensor sees the head at home.
func (d *Drive) atHome() bool {
	return !d.lines.Track0.Read()
}

/*
	FindTrack0 homes the head. The position is unknown while this runs. The
	head is first forced a few pulses inward, regardless of what the sensor
	claims; mechanisms resting exactly on the home stop have been seen to
	report home unreliably, so the sensor is only trusted once the head has
	demonstrably moved. The head is then stepped outward one pulse at a
	time until the sensor goes active. Exhausting the step budget means the
	mechanism is stuck or unplugged; that is not recoverable by retrying,
	only by mechanical intervention.
*/
func (d *Drive) FindTrack0() error {

	d.pos = Unknown()

	d.step(stepIn, homingOffset)

	for i := 0; i < homingSteps; i++ {
		d.step(stepOut, 1)
		if d.atHome() {
			d.pos = Known(0)
			log.Debugf("homed after %d outward steps", i+1)
			return d.checkPosition()
		}
	}

	return ErrTrack0NotFound
}

/*
	SeekTo moves the head to the given track. With the position unknown,
	it homes first. A seek to the current track issues no step pulses.
	After moving, the inferred position is checked against the track zero
	sensor; a mismatch is fatal and leaves the drive requiring an explicit
	FindTrack0 before any further seek.
*/
func (d *Drive) SeekTo(track int) error {

	if track < 0 {
		return &InvalidSeekError{Track: track}
	}

	if !d.pos.IsKnown() {
		if err := d.FindTrack0(); err != nil {
			return err
		}
	}

	cur, _ := d.pos.Track()
	delta := track - cur

	if delta != 0 {
		log.Debugf("seek %d -> %d", cur, track)
		if delta < 0 {
			d.step(stepOut, -delta)
		} else {
			d.step(stepIn, delta)
		}
		sleep(d.clock, d.timing.StepDelayMs)
	}

	d.pos = Known(track)
	return d.checkPosition()
}

// step issues count step pulses in the given direction.
func (d *Drive) step(direction bool, count int) {
	d.lines.Direction.Write(direction)
	for i := 0; i < count; i++ {
		sleep(d.clock, d.timing.StepDelayMs)
		d.lines.Step.Write(true)
		sleep(d.clock, d.timing.StepDelayMs)
		d.lines.Step.Write(false)
	}
}

//
func (d *Drive) checkPosition() error {

	track, known := d.pos.Track()
	if !known {
		return nil
	}

	if home := d.atHome(); home != (track == 0) {
		return &PositionLostError{Expected: track, AtHome: home}
	}
	return nil
}

// ReadDataLine exposes the raw read data line for flux capture.
func (d *Drive) ReadDataLine() Line {
	return d.lines.ReadData
}

// IndexLine exposes the index sense line for flux capture.
func (d *Drive) IndexLine() Line {
	return d.lines.Index
}
