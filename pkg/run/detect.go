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
	"io/ioutil"
)

//
func NewDetect() *Detect {

	d := &Detect{}
	d.Runner = *NewRunner(
		"detect [-a|--address {address}]",
		"re-detect disk format",
		`Use the detect command after swapping disks. The daemon re-runs format
detection on the inserted disk and resets its track caches.`,
		runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	return d
}

//
type Detect struct {
	Runner
}

//
func (d *Detect) Run() error {

	d.ParseSettings()

	resp, err := d.apiCall("PUT", "/detect", false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	msg, err := ioutil.ReadAll(resp)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", msg)
	return nil
}
