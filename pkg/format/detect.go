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
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/flux"
)

// capture attempts before detection gives up
const detectAttempts = 5

/*
	Nominal bit cell periods to try against the boot sector, in decode
	order. 1000 ns is HD media, 2000 ns DD; the odd periods are the same
	media spun in a drive of the other speed class.
*/
var bitCellHypotheses = []int{1000, 2000, 833, 1667}

/*
	Detect infers the disk geometry by decoding the boot sector under each
	timing hypothesis in turn. It seeks to track 1 and back to 0 first, so
	the head arrives settled from a known direction, then captures track 0
	side 0 up to detectAttempts times, trying every hypothesis on each
	capture. The first decode with a valid boot signature wins, unless the
	head count disagrees with what the hardware supports. With keepSelected
	unset, the drive is released again before returning.
*/
func Detect(d *floppy.Drive, dec flux.Decoder,
	keepSelected bool) (floppy.Geometry, error) {

	var geo floppy.Geometry

	if !d.Selected() {
		d.Select(true)
	}
	if err := d.EngageSpin(); err != nil {
		return geo, err
	}
	if !keepSelected {
		defer func() {
			d.StopSpin()
			d.Select(false)
		}()
	}

	if err := d.SeekTo(1); err != nil {
		return geo, err
	}
	if err := d.SeekTo(0); err != nil {
		return geo, err
	}
	d.SelectSide(0)

	buf := flux.NewCaptureBuffer(floppy.MaxSectorsPerTrack)
	sector := make([]byte, floppy.SectorSize)
	validity := make([]bool, 1)

	var lastErr error
	badHeads := 0

	for i := 0; i < detectAttempts; i++ {

		n, err := dec.Capture(buf, d.ReadDataLine(), d.IndexLine())
		if err != nil {
			log.Warnf("detection capture %d: %v", i+1, err)
			lastErr = err
			continue
		}

		for _, period := range bitCellHypotheses {

			tShort, tLong := flux.Thresholds(period, dec.SampleRateHz())
			validity[0] = false

			if dec.Decode(
				sector, buf[:n], tShort, tLong, validity, true) < 1 ||
				!validity[0] {
				continue
			}

			if !signatureOK(sector) {
				log.Debugf("%d ns: no boot signature", period)
				continue
			}

			heads := headCount(sector)
			if heads != floppy.HeadCount {
				log.Debugf("%d ns: boot sector claims %d heads", period,
					heads)
				badHeads = heads
				continue
			}

			return fromBootSector(sector, period)
		}
	}

	if badHeads != 0 {
		return geo, &floppy.UnsupportedMediaError{Heads: badHeads}
	}
	return geo, &floppy.FormatDetectionError{Last: lastErr}
}

// fromBootSector builds the geometry from a validated boot sector.
func fromBootSector(sector []byte, period int) (floppy.Geometry, error) {

	geo := floppy.Geometry{
		Heads:     floppy.HeadCount,
		Sectors:   sectorsPerTrack(sector),
		BitCellNs: period,
	}

	total := totalSectors(sector)
	perCylinder := geo.Heads * geo.Sectors
	if perCylinder > 0 {
		geo.Tracks = total / perCylinder
		if total%perCylinder != 0 {
			geo.Tracks++
			log.Warnf("total sector count %d leaves a partial cylinder, "+
				"rounding up to %d tracks", total, geo.Tracks)
		}
	}

	if err := geo.Validate(); err != nil {
		return geo, err
	}

	log.Infof("detected format: %v", geo)
	return geo, nil
}
