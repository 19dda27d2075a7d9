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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/fluxdrive/pkg/blockdev"
	"github.com/xelalexv/fluxdrive/pkg/control"
	"github.com/xelalexv/fluxdrive/pkg/floppy"
	"github.com/xelalexv/fluxdrive/pkg/hal"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve -d|--device {device} [-a|--address {address}] [-k|--keep]
      [--step-delay {ms}] [--motor-settle {ms}] [--index-timeout {ms}]`,
		"daemon & API server command",
		`Use the serve command for running the drive daemon and API server. On startup,
the daemon connects to the bridge on the given serial device, detects the format
of the inserted disk, and then serves its blocks over the API.`,
		`- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace

`+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Device, "device", "d", "FLUXDRIVE_DEVICE", nil,
		"serial port device for bridge", true)
	s.AddSetting(&s.Keep, "keep", "k", "FLUXDRIVE_KEEP", false,
		"keep drive selected & spinning between operations", false)
	s.AddSetting(&s.StepDelay, "step-delay", "", "FLUXDRIVE_STEP_DELAY",
		100, "step pulse settle interval, in ms", false)
	s.AddSetting(&s.MotorSettle, "motor-settle", "", "FLUXDRIVE_MOTOR_SETTLE",
		1000, "motor spin-up settle interval, in ms", false)
	s.AddSetting(&s.IndexTimeout, "index-timeout", "",
		"FLUXDRIVE_INDEX_TIMEOUT", 10000,
		"index pulse wait timeout after spin-up, in ms", false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Device       string
	Keep         bool
	StepDelay    int
	MotorSettle  int
	IndexTimeout int
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	adapter, err := hal.Open(s.Device)
	if err != nil {
		return err
	}
	defer adapter.Close()

	drive := floppy.NewDrive(adapter.Lines(), adapter.Clock(), floppy.Timing{
		StepDelayMs:    s.StepDelay,
		MotorSettleMs:  s.MotorSettle,
		IndexTimeoutMs: s.IndexTimeout,
	})

	dev, err := blockdev.NewAutodetect(drive, adapter, s.Keep)
	if err != nil {
		return err
	}

	api := control.NewAPIServer(s.Address, dev)

	done := make(chan error, 1)
	go func() {
		done <- api.Serve()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.Infof("received signal %v, stopping", sig)
		if err := api.Stop(); err != nil {
			log.Errorf("error stopping API server: %v", err)
		}
		<-done

	case err := <-done:
		if err != nil {
			return err
		}
	}

	drive.StopSpin()
	drive.Select(false)
	log.Info("daemon stopped")
	return nil
}
