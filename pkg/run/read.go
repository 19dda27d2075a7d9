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

package run

import (
	"fmt"
	"io"
	"os"
)

//
func NewRead() *Read {

	r := &Read{}
	r.Runner = *NewRunner(
		`read [-a|--address {address}] [-s|--start {block}] [-c|--count {blocks}]
     [-o|--outfile {file}] [-p|--pad]`,
		"read blocks from the disk",
		`Use the read command to read a range of blocks from the inserted disk, into a
file or to stdout. Without start and count, the entire disk is read. With pad
set, unreadable blocks are replaced with filler data instead of aborting, which
is what you want when imaging marginal disks.`,
		runnerHelpEpilogue, r.Run)

	r.AddBaseSettings()
	r.AddSetting(&r.Start, "start", "s", "", 0, "first block to read", false)
	r.AddSetting(&r.Count, "count", "c", "", 0,
		"number of blocks to read; 0 reads through the last block", false)
	r.AddSetting(&r.OutFile, "outfile", "o", "", nil,
		"output file; stdout when omitted", false)
	r.AddSetting(&r.Pad, "pad", "p", "", false,
		"pad unreadable blocks with filler data", false)

	return r
}

//
type Read struct {
	//
	Runner
	//
	Start   int
	Count   int
	OutFile string
	Pad     bool
}

//
func (r *Read) Run() error {

	r.ParseSettings()

	pad := 0
	if r.Pad {
		pad = 1
	}

	resp, err := r.apiCall("GET", fmt.Sprintf(
		"/read?start=%d&count=%d&pad=%d", r.Start, r.Count, pad), false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	out := os.Stdout
	if r.OutFile != "" {
		if out, err = os.Create(r.OutFile); err != nil {
			return err
		}
		defer out.Close()
	}

	n, err := io.Copy(out, resp)
	if err != nil {
		return err
	}

	if r.OutFile != "" {
		fmt.Printf("wrote %d blocks to %s\n", n/512, r.OutFile)
	}
	return nil
}
