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
	Package hal connects the drive abstractions to real hardware through a
	microcontroller bridge on a serial port. The bridge owns the drive
	connector and the flux sampling engine; the host side here only shovels
	line states and buffers back and forth.
*/
package hal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/floppy/flux"
)

// line ids on the bridge, matching its firmware table
const (
	lineDensity = iota
	lineIndex
	lineSelect
	lineMotor
	lineDirection
	lineStep
	lineTrack0
	lineProtect
	lineReadData
	lineSide
	lineReady
	lineWriteData
	lineWriteGate
	lineBusDirection
	lineBusEnable
)

// bridge command bytes
const (
	cmdReadLine  = 'r'
	cmdWriteLine = 'w'
	cmdCapture   = 'c'
	cmdDecode    = 'd'
)

//
const commandLength = 4

// the adapter doubles as the flux capture & decode capability
var _ flux.Decoder = (*Adapter)(nil)

//
var helloBridge = []byte("flxb")
var helloHost = []byte("flxh")

/*
	Adapter talks to the bridge. Commands are fixed length frames of four
	bytes: command, line id or flags, and a 16 bit little endian argument.
	Bulk payloads follow a frame, prefixed with a 32 bit length. The
	adapter implements flux.Decoder; capture runs on the bridge against its
	own sample clock, decode ships the flux buffer down and gets sectors
	and validity back.
*/
type Adapter struct {
	//
	port io.ReadWriteCloser
	// sample rate of the bridge's flux engine, from its hello
	rate int
	// write capable cabling, from its hello
	writable bool
	//
	err error
}

// Open opens the serial device and syncs with the bridge.
func Open(device string) (*Adapter, error) {

	port, err := serial.Open(serial.OpenOptions{
		PortName:        device,
		BaudRate:        1000000,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %v", device, err)
	}

	a := &Adapter{port: port}
	if err := a.syncOnHello(); err != nil {
		port.Close()
		return nil, err
	}
	return a, nil
}

//
func (a *Adapter) Close() error {
	return a.port.Close()
}

// Err returns the first transport error seen on a line access, if any.
// Line reads and writes themselves cannot report errors.
func (a *Adapter) Err() error {
	return a.err
}

/*
	syncOnHello scans the inbound byte stream for the bridge's hello,
	answers with the host hello, and reads the bridge info that follows:
	sample rate in Hz and a capability flag for the write path.
*/
func (a *Adapter) syncOnHello() error {

	log.Info("syncing with bridge")
	hello := make([]byte, commandLength)

	for !bytes.Equal(hello, helloBridge) {
		shiftLeft(hello)
		if err := a.receive(hello[len(hello)-1:]); err != nil {
			return err
		}
	}

	if err := a.send(helloHost); err != nil {
		return fmt.Errorf("error sending host hello: %v", err)
	}

	info := make([]byte, 5)
	if err := a.receive(info); err != nil {
		return fmt.Errorf("error reading bridge info: %v", err)
	}

	a.rate = int(binary.LittleEndian.Uint32(info))
	a.writable = info[4]&1 != 0

	log.Infof("synced with bridge, sample rate %d Hz, writable: %v",
		a.rate, a.writable)
	return nil
}

// Lines returns the drive line set, with the optional lines marked
// present according to the bridge's capabilities.
func (a *Adapter) Lines() floppy.Lines {

	opt := func(id byte) floppy.OptionalLine {
		return floppy.OptionalLine{
			Line: &bridgeLine{a: a, id: id}, Present: a.writable}
	}

	return floppy.Lines{
		Density:      a.line(lineDensity),
		Index:        a.line(lineIndex),
		Select:       a.line(lineSelect),
		Motor:        a.line(lineMotor),
		Direction:    a.line(lineDirection),
		Step:         a.line(lineStep),
		Track0:       a.line(lineTrack0),
		Protect:      a.line(lineProtect),
		ReadData:     a.line(lineReadData),
		Side:         a.line(lineSide),
		Ready:        a.line(lineReady),
		WriteData:    opt(lineWriteData),
		WriteGate:    opt(lineWriteGate),
		BusDirection: opt(lineBusDirection),
		BusEnable:    opt(lineBusEnable),
	}
}

//
func (a *Adapter) line(id byte) floppy.Line {
	return &bridgeLine{a: a, id: id}
}

// Clock returns the host clock to run drive timing against. Line latency
// over the serial link dwarfs a millisecond tick, so host time is good
// enough for the settle intervals.
func (a *Adapter) Clock() floppy.Clock {
	return floppy.NewWallClock()
}

//
func (a *Adapter) SampleRateHz() int {
	return a.rate
}

//
func (a *Adapter) Capture(buf []byte, data, index floppy.Line) (int, error) {

	if err := a.command(cmdCapture, 0, uint16(len(buf)/256)); err != nil {
		return 0, err
	}

	head := make([]byte, 4)
	if err := a.receive(head); err != nil {
		return 0, fmt.Errorf("error reading capture length: %v", err)
	}

	n := int(binary.LittleEndian.Uint32(head))
	if n > len(buf) {
		return 0, fmt.Errorf("bridge captured %d bytes into a %d byte "+
			"buffer", n, len(buf))
	}

	if err := a.receive(buf[:n]); err != nil {
		return 0, fmt.Errorf("error reading capture: %v", err)
	}
	return n, nil
}

//
func (a *Adapter) Decode(sectors, fl []byte, tShort, tLong int,
	validity []bool, resetSync bool) int {

	flags := byte(0)
	if resetSync {
		flags = 1
	}

	if err := a.command(cmdDecode, flags, uint16(tShort)); err != nil {
		log.Errorf("error sending decode command: %v", err)
		return 0
	}

	head := make([]byte, 8)
	binary.LittleEndian.PutUint32(head, uint32(tLong))
	binary.LittleEndian.PutUint32(head[4:], uint32(len(fl)))

	if err := a.send(head); err != nil {
		log.Errorf("error sending decode header: %v", err)
		return 0
	}
	if err := a.send(fl); err != nil {
		log.Errorf("error sending flux buffer: %v", err)
		return 0
	}

	if err := a.receive(sectors); err != nil {
		log.Errorf("error reading sectors: %v", err)
		return 0
	}

	mask := make([]byte, len(validity))
	if err := a.receive(mask); err != nil {
		log.Errorf("error reading validity: %v", err)
		return 0
	}

	valid := 0
	for i, m := range mask {
		validity[i] = m != 0
		if validity[i] {
			valid++
		}
	}
	return valid
}

//
func (a *Adapter) command(cmd, arg byte, val uint16) error {
	frame := []byte{cmd, arg, 0, 0}
	binary.LittleEndian.PutUint16(frame[2:], val)
	return a.send(frame)
}

//
func (a *Adapter) receive(data []byte) error {
	_, err := io.ReadFull(a.port, data)
	return err
}

//
func (a *Adapter) send(data []byte) error {
	_, err := a.port.Write(data)
	return err
}

/*
	bridgeLine is one drive line, accessed remotely. The Line interface
	has no error return, mirroring a local pin; transport errors are
	logged, latched on the adapter, and reads fall back to the pulled up
	level.
*/
type bridgeLine struct {
	a  *Adapter
	id byte
}

//
func (l *bridgeLine) Read() bool {

	if err := l.a.command(cmdReadLine, l.id, 0); err != nil {
		l.fail(err)
		return true
	}

	v := make([]byte, 1)
	if err := l.a.receive(v); err != nil {
		l.fail(err)
		return true
	}
	return v[0] != 0
}

//
func (l *bridgeLine) Write(v bool) {
	val := uint16(0)
	if v {
		val = 1
	}
	if err := l.a.command(cmdWriteLine, l.id, val); err != nil {
		l.fail(err)
	}
}

//
func (l *bridgeLine) fail(err error) {
	log.Errorf("bridge line %d: %v", l.id, err)
	if l.a.err == nil {
		l.a.err = err
	}
}

//
func shiftLeft(data []byte) {
	copy(data, data[1:])
}
