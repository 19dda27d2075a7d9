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

package flux

import (
	"github.com/xelalexv/fluxdrive/pkg/floppy"
)

// raw flux samples per 512 byte sector, with safety margin
const samplesPerSector = 12 * floppy.SectorSize

/*
	Decoder is the native flux capture and MFM decode routine. Capture
	samples flux transition timings off the read data line into buf and
	blocks until either buf is full or one full revolution, index pulse to
	index pulse, has gone by; it is not interruptible, callers needing a
	latency bound must size buf accordingly. Decode turns a captured buffer
	into sector bytes, writing one entry per decoded sector into validity,
	and returns the number of valid sectors. The two thresholds separate
	short, medium and long transition runs and are expressed in sample
	ticks of the decoder's rate. With resetSync set, the decoder drops its
	synchronization state before decoding; the first attempt on a freshly
	captured track should set it, refinement passes should not.
*/
type Decoder interface {
	SampleRateHz() int
	Capture(buf []byte, data, index floppy.Line) (int, error)
	Decode(sectors, flux []byte, tShort, tLong int,
		validity []bool, resetSync bool) int
}

// NewCaptureBuffer allocates a flux buffer large enough for one track of
// the given sector count. The buffer is meant to be reused across capture
// attempts.
func NewCaptureBuffer(sectors int) []byte {
	return make([]byte, sectors*samplesPerSector)
}

/*
	Thresholds derives the two decode thresholds for a nominal bit cell
	period, at 2.5 and 3.5 times the period, scaled to the decoder's sample
	rate.
*/
func Thresholds(bitCellNs, sampleRateHz int) (int, int) {
	tShort := int(int64(bitCellNs) * int64(sampleRateHz) * 25 / 10 / 1e9)
	tLong := int(int64(bitCellNs) * int64(sampleRateHz) * 35 / 10 / 1e9)
	return tShort, tLong
}
