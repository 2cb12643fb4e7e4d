// Package nlog - corepath logger.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	logDir  string
	aisrole string // process role, for the log file name ("proxy"-style tag, repurposed as "clickd")
	title   string

	host string
	pid  = os.Getpid()
)

func init() {
	if h, err := os.Hostname(); err == nil {
		host = h
	} else {
		host = "localhost"
	}
}

func sname() string {
	if aisrole == "" {
		return "clickd"
	}
	return aisrole
}

func logfname(tag string, t time.Time) (name, link string) {
	s := sname()
	name = fmt.Sprintf("%s.%s.%s.%02d%02d-%02d%02d%02d.%d",
		s, host, tag, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), pid)
	return name, s + "." + tag
}

// fcreate opens (and symlinks) a new log file for the given severity tag.
func fcreate(tag string, now time.Time) (f *os.File, fname string, err error) {
	dir := logDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}
	name, link := logfname(tag, now)
	fname = filepath.Join(dir, name)
	f, err = os.OpenFile(fname, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fname, err
	}
	symlink := filepath.Join(dir, link)
	os.Remove(symlink)
	_ = os.Symlink(name, symlink)
	return f, fname, nil
}
