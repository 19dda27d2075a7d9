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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/flux"
	"github.com/xelalexv/fluxdrive/pkg/format"
)

// capture+decode attempts per track before settling for partial validity
const trackReadRetries = 5

/*
	Device exposes a floppy drive as a read-only block device of 512 byte
	blocks. Two track caches amortize the cost of a full track decode
	across sector reads: one slot permanently pinned to track 0 side 0,
	which holds the boot sector and FAT region that filesystem drivers hit
	constantly, and one general slot holding the most recently decoded
	other track side. Like the drive itself, a Device is single-threaded;
	concurrent callers must serialize.
*/
type Device struct {
	//
	drive *floppy.Drive
	dec   flux.Decoder
	geo   floppy.Geometry
	//
	track0  *trackSlot
	general *trackSlot
	//
	fluxBuf []byte
	// decode target for retries, so a worse attempt cannot clobber a
	// better one already in the slot
	attempt *trackSlot
	//
	thresholdShort int
	thresholdLong  int

	// KeepSelected keeps the drive selected and spinning between
	// operations. Lower latency per read, but continuous wear and power
	// draw; with it off, every operation pays the spin-up wait.
	KeepSelected bool
}

// New creates a block device for the given geometry and primes the pinned
// track 0 cache.
func New(drive *floppy.Drive, dec flux.Decoder, geo floppy.Geometry,
	keepSelected bool) (*Device, error) {

	if err := geo.Validate(); err != nil {
		return nil, err
	}

	d := &Device{
		drive:        drive,
		dec:          dec,
		KeepSelected: keepSelected,
	}

	if err := d.setGeometry(geo); err != nil {
		return nil, err
	}
	return d, nil
}

// NewAutodetect creates a block device, inferring the geometry from the
// boot sector first.
func NewAutodetect(drive *floppy.Drive, dec flux.Decoder,
	keepSelected bool) (*Device, error) {

	geo, err := format.Detect(drive, dec, keepSelected)
	if err != nil {
		return nil, err
	}
	return New(drive, dec, geo, keepSelected)
}

//
func (d *Device) Drive() *floppy.Drive {
	return d.drive
}

//
func (d *Device) Geometry() floppy.Geometry {
	return d.geo
}

// Count returns the total number of 512 byte blocks.
func (d *Device) Count() int {
	return d.geo.Capacity()
}

// Sync is a no-op; there is no write cache to flush.
func (d *Device) Sync() error {
	return nil
}

// WriteBlocks always fails; the device is read-only by design.
func (d *Device) WriteBlocks(start int, src []byte) error {
	return floppy.ErrReadOnly
}

/*
	ReadBlocks reads len(dst)/512 blocks starting at block start into dst.
	Blocks are read one at a time; on a per-block failure, the error names
	the failing block and everything before it in dst is good. Callers
	reading multi-block ranges are expected to retry or skip per block.
*/
func (d *Device) ReadBlocks(start int, dst []byte) error {

	if len(dst)%floppy.SectorSize != 0 {
		return fmt.Errorf("destination length %d is not a multiple of %d",
			len(dst), floppy.SectorSize)
	}

	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	for i := 0; i < len(dst)/floppy.SectorSize; i++ {
		off := i * floppy.SectorSize
		if err := d.readBlock(
			start+i, dst[off:off+floppy.SectorSize]); err != nil {
			return fmt.Errorf("block %d: %w", start+i, err)
		}
	}
	return nil
}

/*
	Autodetect re-runs format detection, picking up newly inserted media.
	A successful detection resets both cache slots for the new geometry.
*/
func (d *Device) Autodetect() error {
	geo, err := format.Detect(d.drive, d.dec, d.KeepSelected)
	if err != nil {
		return err
	}
	return d.setGeometry(geo)
}

/*
	DiskChanged refreshes the pinned track 0 cache and invalidates the
	general slot, forcing fresh decodes after a media swap that kept the
	same geometry. Media with a different layout needs Autodetect instead.
*/
func (d *Device) DiskChanged() error {

	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	d.general.invalidate()
	return d.decodeTrack(d.track0, 0, 0)
}

// setGeometry swaps in a new geometry, rebuilds both cache slots and the
// shared capture buffer, and primes the pinned slot.
func (d *Device) setGeometry(geo floppy.Geometry) error {

	d.geo = geo
	d.track0 = newTrackSlot(geo.Sectors)
	d.general = newTrackSlot(geo.Sectors)
	d.attempt = newTrackSlot(geo.Sectors)
	d.fluxBuf = flux.NewCaptureBuffer(geo.Sectors)
	d.thresholdShort, d.thresholdLong =
		flux.Thresholds(geo.BitCellNs, d.dec.SampleRateHz())

	log.Infof("geometry set: %v, %d blocks", geo, geo.Capacity())

	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	return d.decodeTrack(d.track0, 0, 0)
}

// acquire makes sure the drive is selected and spinning.
func (d *Device) acquire() error {
	if !d.drive.Selected() {
		d.drive.Select(true)
	}
	return d.drive.EngageSpin()
}

// release lets go of the drive, unless it is being held across operations.
func (d *Device) release() {
	if d.KeepSelected {
		return
	}
	d.drive.StopSpin()
	d.drive.Select(false)
}

//
func (d *Device) readBlock(block int, dst []byte) error {

	track, side, sector, err := d.chs(block)
	if err != nil {
		return err
	}

	slot, err := d.slotFor(track, side)
	if err != nil {
		return err
	}

	if !slot.valid[sector] {
		return &floppy.SectorReadError{Track: track, Side: side,
			Sector: sector}
	}

	copy(dst, slot.sector(sector))
	return nil
}

// chs translates a logical block number into track, side and sector.
func (d *Device) chs(block int) (int, int, int, error) {

	if block < 0 || block >= d.geo.Capacity() {
		return 0, 0, 0, &floppy.OutOfRangeError{
			Block: block, Capacity: d.geo.Capacity()}
	}

	perTrack := d.geo.Heads * d.geo.Sectors
	r := block % perTrack

	return block / perTrack, r / d.geo.Sectors, r % d.geo.Sectors, nil
}

// slotFor returns the cache slot holding the given track side, decoding
// it first if necessary. Track 0 side 0 always lives in the pinned slot.
func (d *Device) slotFor(track, side int) (*trackSlot, error) {

	if track == 0 && side == 0 {
		return d.track0, nil
	}

	if !d.general.holds(track, side) {
		if err := d.decodeTrack(d.general, track, side); err != nil {
			return nil, err
		}
	}
	return d.general, nil
}

/*
	decodeTrack seeks to the given track side and decodes it into the slot,
	retrying marginal media a bounded number of times. Among the attempts,
	the one with the most valid sectors wins; short reads end up as
	per-sector invalidity in the slot, not as a hard failure. Only when not
	a single sector of any attempt decoded and the last capture raised a
	transient error is that error surfaced.
*/
func (d *Device) decodeTrack(slot *trackSlot, track, side int) error {

	slot.invalidate()

	if err := d.drive.SeekTo(track); err != nil {
		return err
	}
	d.drive.SelectSide(side)

	best := -1
	var lastErr error

	for i := 0; i < trackReadRetries; i++ {

		n, err := d.dec.Capture(
			d.fluxBuf, d.drive.ReadDataLine(), d.drive.IndexLine())
		if err != nil {
			log.Warnf("capture attempt %d for track %d, side %d: %v",
				i+1, track, side, err)
			lastErr = err
			continue
		}

		for s := range d.attempt.valid {
			d.attempt.valid[s] = false
		}

		got := d.dec.Decode(d.attempt.data, d.fluxBuf[:n],
			d.thresholdShort, d.thresholdLong, d.attempt.valid, i == 0)

		if got > best {
			best = got
			copy(slot.data, d.attempt.data)
			copy(slot.valid, d.attempt.valid)
		}

		if best == d.geo.Sectors {
			break
		}
	}

	if best < 1 {
		if lastErr != nil {
			return fmt.Errorf("track %d, side %d unreadable: %w",
				track, side, lastErr)
		}
		log.Warnf("track %d, side %d: no sector decoded", track, side)
	} else if best < d.geo.Sectors {
		log.Debugf("track %d, side %d: %d of %d sectors valid",
			track, side, best, d.geo.Sectors)
	}

	slot.track = track
	slot.side = side
	return nil
}
