// Package nlog provides buffering, timestamping, writing, and
// flushing/syncing/rotating for severity-leveled logs.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clickrt/corepath/cmn/mono"
)

const (
	fixedSize   = 64 * 1024
	maxLineSize = 2 * 1024
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevText = map[severity]string{sevInfo: "INFO", sevWarn: "WARNING", sevErr: "ERROR"}

type nlog struct {
	file    *os.File
	pw      fixed
	last    atomic.Int64
	written atomic.Int64
	sev     severity
	oob     atomic.Bool
	erred   atomic.Bool
	mw      sync.Mutex
}

var (
	toStderr     bool
	alsoToStderr bool

	nlogs         = map[severity]*nlog{}
	onceInitFiles sync.Once
)

func initFiles() {
	for _, sev := range []severity{sevInfo, sevWarn, sevErr} {
		nlogs[sev] = newNlog(sev)
	}
}

func newNlog(sev severity) *nlog {
	return &nlog{sev: sev, pw: fixed{buf: make([]byte, fixedSize)}}
}

func (n *nlog) since(now int64) time.Duration { return time.Duration(now - n.last.Load()) }

// main function
func log(sev severity, depth int, format string, args ...any) {
	onceInitFiles.Do(initFiles)

	fb := &fixed{buf: make([]byte, maxLineSize)}
	sprintf(sev, depth+1, format, fb, args...)

	if !flag.Parsed() {
		os.Stderr.WriteString("Error: logging before flag.Parse: ")
		os.Stderr.Write(fb.buf[:fb.woff])
		return
	}
	if toStderr {
		os.Stderr.Write(fb.buf[:fb.woff])
		return
	}
	if alsoToStderr || sev >= sevWarn {
		os.Stderr.Write(fb.buf[:fb.woff])
	}
	n := nlogs[mapFile(sev)]
	n.mw.Lock()
	n.write(fb)
	n.mw.Unlock()
}

// INFO and WARNING both land in the INFO file; ERROR lands in its own file
// (mirroring aistore's glog-style convention).
func mapFile(sev severity) severity {
	if sev == sevErr {
		return sevErr
	}
	return sevInfo
}

// under mw-lock
func (n *nlog) write(fb *fixed) {
	if n.file == nil {
		if err := n.rotate(time.Now()); err != nil {
			n.erred.Store(true)
			return
		}
	}
	n.pw.Write(fb.buf[:fb.woff])
	if n.pw.avail() > maxLineSize {
		return
	}
	n.doFlush()
}

func (n *nlog) doFlush() {
	if n.file == nil || n.pw.length() == 0 {
		return
	}
	if n.erred.Load() {
		os.Stderr.Write(n.pw.buf[:n.pw.woff])
	} else {
		written, err := n.pw.flush(n.file)
		if err != nil {
			n.erred.Store(true)
		}
		n.written.Add(int64(written))
		n.last.Store(mono.NanoTime())
	}
	n.pw.reset()
	if n.written.Load() >= MaxSize {
		n.file.Close()
		n.rotate(time.Now())
	}
}

func (n *nlog) rotate(now time.Time) (err error) {
	n.file, _, err = fcreate(sevText[n.sev], now)
	if err != nil {
		n.erred.Store(true)
		return err
	}
	n.written.Store(0)
	n.erred.Store(false)
	hdr := fmt.Sprintf("host %s, %s for %s/%s\n", host, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	snow := now.Format("2006/01/02 15:04:05")
	if title == "" {
		_, err = n.file.WriteString("Started up at " + snow + ", " + hdr)
	} else {
		n.file.WriteString("Rotated at " + snow + ", " + hdr)
		_, err = n.file.WriteString(title)
	}
	return err
}

func formatHdr(s severity, depth int, fb *fixed) {
	const char = "IWE"
	_, fn, ln, ok := runtime.Caller(3 + depth)
	if !ok {
		return
	}
	if idx := strings.LastIndexByte(fn, filepath.Separator); idx > 0 {
		fn = fn[idx+1:]
	}
	fb.writeByte(char[s])
	fb.writeByte(' ')
	now := time.Now()
	fb.writeString(now.Format("15:04:05.000000"))
	fb.writeByte(' ')
	fb.writeString(fn)
	fb.writeByte(':')
	fb.writeString(strconv.Itoa(ln))
	fb.writeByte(' ')
}

func sprintf(sev severity, depth int, format string, fb *fixed, args ...any) {
	formatHdr(sev, depth+1, fb)
	if format == "" {
		fmt.Fprintln(fb, args...)
	} else {
		fmt.Fprintf(fb, format, args...)
		fb.eol()
	}
}
