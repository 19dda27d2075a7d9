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
	"time"
)

/*
	Clock provides monotonic millisecond ticks. Tick values wrap around, so
	they must only ever be compared with Less, never with an ordinary
	less-than.
*/
type Clock interface {
	Now() uint32
	Add(t uint32, ms int) uint32
	Less(a, b uint32) bool
}

// Suspender is an optional extension of Clock. When the clock implements it,
// delays suspend instead of busy-polling against Now.
type Suspender interface {
	Suspend(ms int)
}

// sleep blocks for the given number of milliseconds.
func sleep(c Clock, ms int) {
	if s, ok := c.(Suspender); ok {
		s.Suspend(ms)
		return
	}
	sleepUntil(c, c.Add(c.Now(), ms))
}

//
func sleepUntil(c Clock, deadline uint32) {
	for c.Less(c.Now(), deadline) {
	}
}

// NewWallClock returns a Clock backed by the host's monotonic time. It
// suspends during delays rather than spinning.
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

//
type wallClock struct {
	start time.Time
}

//
func (w *wallClock) Now() uint32 {
	return uint32(time.Since(w.start) / time.Millisecond)
}

//
func (w *wallClock) Add(t uint32, ms int) uint32 {
	return t + uint32(ms)
}

//
func (w *wallClock) Less(a, b uint32) bool {
	return int32(a-b) < 0
}

//
func (w *wallClock) Suspend(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
