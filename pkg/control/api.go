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

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/fluxdrive/pkg/blockdev"
	"github.com/xelalexv/fluxdrive/pkg/floppy"
)

//
type APIServer interface {
	Serve() error
	Stop() error
}

/*
	NewAPIServer creates the HTTP API over one block device. The drive is
	strictly single-threaded, so all drive-touching handlers funnel through
	a lock; requests queue rather than interleave drive operations.
*/
func NewAPIServer(addr string, dev *blockdev.Device) APIServer {
	return &api{
		address: addr,
		dev:     dev,
		lock:    make(chan bool, 1),
	}
}

//
type api struct {
	address string
	dev     *blockdev.Device
	server  *http.Server
	lock    chan bool
}

//
func (a *api) Serve() error {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "detect", "PUT", "/detect", a.detect)
	addRoute(router, "changed", "PUT", "/changed", a.changed)
	addRoute(router, "block", "GET", "/block/{block:[0-9]+}", a.block)
	addRoute(router, "read", "GET", "/read", a.read)
	addRoute(router, "config", "PUT", "/config", a.config)

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:8420", a.address)
	}

	log.Infof("FluxDrive API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: router}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {
	if a.server != nil {
		log.Info("API server stopping...")
		err := a.server.Shutdown(context.Background())
		a.server = nil
		return err
	}
	return nil
}

//
func (a *api) acquire() {
	a.lock <- true
}

//
func (a *api) release() {
	<-a.lock
}

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	a.acquire()
	defer a.release()

	geo := a.dev.Geometry()
	drive := a.dev.Drive()

	stat := &Status{
		Heads:          geo.Heads,
		Sectors:        geo.Sectors,
		Tracks:         geo.Tracks,
		BitCellNs:      geo.BitCellNs,
		Blocks:         a.dev.Count(),
		Position:       drive.Position().String(),
		Selected:       drive.Selected(),
		Spinning:       drive.Spinning(),
		Ready:          drive.Ready(),
		WriteProtected: drive.WriteProtected(),
		KeepSelected:   a.dev.KeepSelected,
	}

	if wantsJSON(req) {
		sendJSONReply(stat, http.StatusOK, w)
	} else {
		sendReply([]byte(stat.String()), http.StatusOK, w)
	}
}

//
func (a *api) detect(w http.ResponseWriter, req *http.Request) {

	a.acquire()
	defer a.release()

	if handleError(a.dev.Autodetect(), http.StatusFailedDependency, w) {
		return
	}
	sendReply([]byte(fmt.Sprintf("detected: %v", a.dev.Geometry())),
		http.StatusOK, w)
}

//
func (a *api) changed(w http.ResponseWriter, req *http.Request) {

	a.acquire()
	defer a.release()

	if handleError(a.dev.DiskChanged(), http.StatusFailedDependency, w) {
		return
	}
	sendReply([]byte("cache refreshed"), http.StatusOK, w)
}

//
func (a *api) block(w http.ResponseWriter, req *http.Request) {

	block, err := strconv.Atoi(mux.Vars(req)["block"])
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	a.acquire()
	defer a.release()

	buf := make([]byte, floppy.SectorSize)
	if err := a.dev.ReadBlocks(block, buf); err != nil {
		code := http.StatusFailedDependency
		var oor *floppy.OutOfRangeError
		if errors.As(err, &oor) {
			code = http.StatusRequestedRangeNotSatisfiable
		}
		handleError(err, code, w)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf); err != nil {
		log.Errorf("problem sending block: %v", err)
	}
}

/*
	read streams a range of blocks, ?start={n}&count={n}. With ?pad=1, a
	block that fails its decode is replaced with a recognizable filler
	instead of aborting the transfer, so imaging marginal disks can carry
	on past bad spots.
*/
func (a *api) read(w http.ResponseWriter, req *http.Request) {

	q := req.URL.Query()

	start, err := strconv.Atoi(q.Get("start"))
	if err != nil {
		start = 0
	}
	count, err := strconv.Atoi(q.Get("count"))
	if err != nil || count < 1 {
		count = a.dev.Count() - start
	}
	pad := q.Get("pad") == "1"

	a.acquire()
	defer a.release()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, floppy.SectorSize)
	bad := 0

	for i := 0; i < count; i++ {
		if err := a.dev.ReadBlocks(start+i, buf); err != nil {
			if !pad {
				log.Errorf("read aborted: %v", err)
				return
			}
			bad++
			copy(buf, badBlockFiller())
		}
		if _, err := w.Write(buf); err != nil {
			log.Errorf("problem streaming blocks: %v", err)
			return
		}
	}

	if bad > 0 {
		log.Warnf("%d of %d blocks padded as unreadable", bad, count)
	}
}

//
func (a *api) config(w http.ResponseWriter, req *http.Request) {

	keep := req.URL.Query().Get("keep")
	if keep == "" {
		sendReply([]byte("nothing to configure"), http.StatusOK, w)
		return
	}

	val, err := strconv.ParseBool(keep)
	if handleError(err, http.StatusBadRequest, w) {
		return
	}

	a.acquire()
	defer a.release()

	a.dev.KeepSelected = val
	if !val {
		a.dev.Drive().StopSpin()
		a.dev.Drive().Select(false)
	}
	sendReply([]byte(fmt.Sprintf("keep selected: %v", val)),
		http.StatusOK, w)
}

//
func badBlockFiller() []byte {
	filler := make([]byte, floppy.SectorSize)
	for i := 0; i < len(filler); i += 8 {
		copy(filler[i:], "BADDATA0")
	}
	return filler
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

//
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), true)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem writing reply: %v", err)
	}
}

//
func wantsJSON(req *http.Request) bool {
	return req.Header.Get("Accept") == "application/json"
}
