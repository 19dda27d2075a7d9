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

/*
	Package sim provides a simulated drive mechanism and flux decoder,
	for running the driver stack without hardware attached. The tests
	throughout this module are built on it.
*/
package sim

import (
	"fmt"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/flux"
)

/*
	Mechanism models the electromechanical side of one drive: head
	carriage, spindle motor, index hole and the sense switches. Line levels
	follow the physical interface, so everything is active low.
*/
type Mechanism struct {
	// physical head position, tracked from step pulses
	Track int
	// head positions the carriage can physically reach
	MaxTrack int
	//
	Selected bool
	MotorOn  bool
	Side     int
	// write protect tab
	Protected bool
	// when set, the track 0 switch never closes
	HomeSensorStuck bool
	// when set, no media is turning, so no index pulses
	NoMedia bool
	// extra tracks the carriage is off from where the driver thinks;
	// nonzero values provoke desync detection
	SlippedBy int

	// counters for assertions
	StepPulses int
	SeeksIn    int
	SeeksOut   int

	dirLevel  bool
	stepLevel bool
	idxPhase  int
}

//
func NewMechanism() *Mechanism {
	return &Mechanism{MaxTrack: 83, Track: 0}
}

// Lines wires the mechanism up as a drive line set.
func (m *Mechanism) Lines() floppy.Lines {
	return floppy.Lines{
		Density:   &line{read: func() bool { return true }},
		Index:     &line{read: m.readIndex},
		Select:    &line{write: func(v bool) { m.Selected = !v }},
		Motor:     &line{write: func(v bool) { m.MotorOn = !v }},
		Direction: &line{write: func(v bool) { m.dirLevel = v }},
		Step:      &line{write: m.writeStep},
		Track0:    &line{read: m.readTrack0},
		Protect:   &line{read: func() bool { return !m.Protected }},
		ReadData:  &line{read: func() bool { return true }},
		Side:      &line{write: func(v bool) { m.setSide(v) }},
		Ready:     &line{read: func() bool { return !m.Selected }},
	}
}

// head moves on the rising edge of the step line
func (m *Mechanism) writeStep(v bool) {
	if v && !m.stepLevel {
		m.StepPulses++
		if m.dirLevel { // high steps outward, toward track 0
			m.SeeksOut++
			if m.Track > 0 {
				m.Track--
			}
		} else {
			m.SeeksIn++
			if m.Track < m.MaxTrack {
				m.Track++
			}
		}
	}
	m.stepLevel = v
}

//
func (m *Mechanism) readTrack0() bool {
	if m.HomeSensorStuck {
		return true
	}
	return m.Track+m.SlippedBy != 0 // active low
}

// index pulses as long as media is turning; alternate levels so that both
// the spin-up wait and capture framing see edges
func (m *Mechanism) readIndex() bool {
	if !m.MotorOn || m.NoMedia {
		return true
	}
	m.idxPhase++
	return m.idxPhase%2 == 0
}

//
func (m *Mechanism) setSide(v bool) {
	if v {
		m.Side = 0
	} else {
		m.Side = 1
	}
}

// line adapts read/write closures over mechanism state to floppy.Line.
type line struct {
	read  func() bool
	write func(bool)
}

//
func (l *line) Read() bool {
	if l.read == nil {
		return true
	}
	return l.read()
}

//
func (l *line) Write(v bool) {
	if l.write != nil {
		l.write(v)
	}
}

/*
	Clock is a fake millisecond clock that jumps forward on every reading,
	so busy waits terminate immediately while wraparound semantics stay
	intact. When Stall is set, Now stands still, which makes every bounded
	wait run into its deadline.
*/
type Clock struct {
	T     uint32
	Stall bool
}

//
func (c *Clock) Now() uint32 {
	if !c.Stall {
		c.T++
	}
	return c.T
}

//
func (c *Clock) Add(t uint32, ms int) uint32 {
	return t + uint32(ms)
}

//
func (c *Clock) Less(a, b uint32) bool {
	return int32(a-b) < 0
}

// Suspend keeps the fake clock honest for code that takes the suspend
// path instead of polling.
func (c *Clock) Suspend(ms int) {
	c.T += uint32(ms)
}

/*
	Decoder is a scripted flux decoder. It serves sector data from an in
	memory disk image, keyed by track and side, and only decodes when the
	thresholds passed in match its configured bit cell period, which lets
	format detection walk its hypothesis list for real. Validity per sector
	can be scripted via Invalid, capture failures via FailCapture.
*/
type Decoder struct {
	//
	Mech *Mechanism
	// nominal period the "media" is written with
	BitCellNs int
	//
	Rate int
	// sectors per track of the image
	Sectors int
	// image holds track data keyed by [track, side]
	Image map[[2]int][]byte
	// when set, decides per sector and attempt whether decode fails;
	// attempt counts from 0 per decoded track
	Invalid func(track, side, sector, attempt int) bool
	// when set, decides per capture whether the capture fails
	FailCapture func(capture int) error

	Captures     int
	Decodes      int
	DecodesFor   map[[2]int]int
	attemptsOn   [2]int
	attemptCount int
}

//
func NewDecoder(m *Mechanism, sectors int) *Decoder {
	return &Decoder{
		Mech:       m,
		BitCellNs:  1000,
		Rate:       24000000,
		Sectors:    sectors,
		Image:      map[[2]int][]byte{},
		DecodesFor: map[[2]int]int{},
	}
}

//
func (d *Decoder) SampleRateHz() int {
	return d.Rate
}

// Fill writes sector data into the image, building tracks on demand. Each
// sector is stamped with its address so tests can verify translation.
func (d *Decoder) Fill(tracks, sides int) {
	for t := 0; t < tracks; t++ {
		for s := 0; s < sides; s++ {
			data := make([]byte, d.Sectors*floppy.SectorSize)
			for sec := 0; sec < d.Sectors; sec++ {
				copy(data[sec*floppy.SectorSize:],
					[]byte(fmt.Sprintf("T%02dS%dR%02d", t, s, sec)))
			}
			d.Image[[2]int{t, s}] = data
		}
	}
}

// SetBootSector places a boot sector at track 0, side 0, sector 0.
func (d *Decoder) SetBootSector(sector []byte) {
	key := [2]int{0, 0}
	if _, ok := d.Image[key]; !ok {
		d.Image[key] = make([]byte, d.Sectors*floppy.SectorSize)
	}
	copy(d.Image[key], sector)
}

//
func (d *Decoder) Capture(buf []byte, data, index floppy.Line) (int, error) {

	if !d.Mech.Selected || !d.Mech.MotorOn {
		return 0, fmt.Errorf("capture with drive not selected or spinning")
	}

	d.Captures++
	if d.FailCapture != nil {
		if err := d.FailCapture(d.Captures); err != nil {
			return 0, err
		}
	}

	// consume the lines the way the native routine would
	index.Read()
	data.Read()

	n := d.Sectors * 12 * floppy.SectorSize
	if n > len(buf) {
		n = len(buf)
	}
	return n, nil
}

//
func (d *Decoder) Decode(sectors, fl []byte, tShort, tLong int,
	validity []bool, resetSync bool) int {

	d.Decodes++

	key := [2]int{d.Mech.Track, d.Mech.Side}
	d.DecodesFor[key]++

	if resetSync || key != d.attemptsOn {
		d.attemptsOn = key
		d.attemptCount = 0
	} else {
		d.attemptCount++
	}

	wantShort, wantLong := flux.Thresholds(d.BitCellNs, d.Rate)
	if tShort != wantShort || tLong != wantLong {
		for i := range validity {
			validity[i] = false
		}
		return 0
	}

	image, ok := d.Image[key]
	if !ok {
		for i := range validity {
			validity[i] = false
		}
		return 0
	}

	count := len(sectors) / floppy.SectorSize
	if count > d.Sectors {
		count = d.Sectors
	}

	valid := 0
	for i := 0; i < count && i < len(validity); i++ {
		if d.Invalid != nil &&
			d.Invalid(key[0], key[1], i, d.attemptCount) {
			validity[i] = false
			continue
		}
		copy(sectors[i*floppy.SectorSize:(i+1)*floppy.SectorSize],
			image[i*floppy.SectorSize:])
		validity[i] = true
		valid++
	}
	return valid
}
