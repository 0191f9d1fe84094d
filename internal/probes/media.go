// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/boardlab/hwtest/errors"
	"github.com/boardlab/hwtest/internal/session"
)

const (
	codeMountFailed  session.Code = "MOUNT_FAILED"
	codeCheckFailed  session.Code = "CHECK_FAILED"
	codeMountAFailed session.Code = "MOUNT_A_FAILED"
	codeCheckAFailed session.Code = "CHECK_A_FAILED"
	codeMountBFailed session.Code = "MOUNT_B_FAILED"
	codeCheckBFailed session.Code = "CHECK_B_FAILED"

	// checksumFile lists "<sha256>  <file>" lines, as written by sha256sum,
	// at the root of a test medium.
	checksumFile = "test-file.sha256"

	defaultMediaTimeout = 5 * time.Second
)

var sdProbe = &Probe{
	Name:        "sd",
	Description: "verify the test files of the SD card",
	Errors: map[session.Code]string{
		codeMountFailed: "Mount SD card failed",
		codeCheckFailed: "Check SD card failed or invalid SD card",
	},
	Params: []Param{
		{Key: "label", Default: "SDCARD", Usage: "SD card filesystem label"},
	},
	run: func(ctx context.Context, s *session.Session, p Params, h *host) error {
		s.Messagef("Check SD card")
		return checkMedium(ctx, s, h, medium{
			label:     p["label"],
			mountCode: codeMountFailed,
			checkCode: codeCheckFailed,
		})
	},
}

var usbProbe = &Probe{
	Name:        "usb",
	Description: "verify the test files of both pen drives",
	Errors: map[session.Code]string{
		codeCheckAFailed: "Check pen drive A failed or invalid pen drive A",
		codeCheckBFailed: "Check pen drive B failed or invalid pen drive B",
		codeMountAFailed: "Mount pen drive A failed",
		codeMountBFailed: "Mount pen drive B failed",
	},
	Params: []Param{
		{Key: "labela", Default: "USBKEYA", Usage: "pen drive A filesystem label"},
		{Key: "labelb", Default: "USBKEYB", Usage: "pen drive B filesystem label"},
	},
	run: func(ctx context.Context, s *session.Session, p Params, h *host) error {
		s.Messagef("Check USB key A")
		if err := checkMedium(ctx, s, h, medium{
			label:       p["labela"],
			missingCode: codeMountAFailed,
			mountCode:   codeMountAFailed,
			checkCode:   codeCheckAFailed,
		}); err != nil {
			return err
		}
		s.Messagef("Check USB key B")
		return checkMedium(ctx, s, h, medium{
			label:       p["labelb"],
			missingCode: codeMountBFailed,
			mountCode:   codeMountBFailed,
			checkCode:   codeCheckBFailed,
		})
	},
}

// medium identifies a removable test medium and the codes its failures
// are reported with.
type medium struct {
	label       string
	missingCode session.Code // replaces DEV_NOT_FOUND if set
	mountCode   session.Code
	checkCode   session.Code
}

// checkMedium waits for the filesystem labeled m.label, finds where it is
// mounted and verifies its checksum file.
func checkMedium(ctx context.Context, s *session.Session, h *host, m medium) error {
	dev := filepath.Join(h.diskByLabel, m.label)
	if err := s.WaitForDevice(ctx, dev, h.mediaTimeout); err != nil {
		var se *session.Error
		if m.missingCode != "" && errors.As(err, &se) && se.Code == session.CodeDevNotFound {
			s.Debugf("%v", err)
			return session.NewError(m.missingCode)
		}
		return err
	}

	dir, err := findMount(h.mountsPath, dev)
	if err != nil {
		s.Debugf("%v", err)
		return session.NewError(m.mountCode)
	}
	s.Debugf("%s mounted on %s", m.label, dir)

	n, err := verifyChecksums(dir)
	if err != nil {
		s.Debugf("%v", err)
		return session.NewError(m.checkCode)
	}
	s.Debugf("%d file(s) verified on %s", n, dir)
	return nil
}

// findMount returns the mount point of dev according to the mount table at
// mountsPath. dev may be a symlink such as a by-label link.
func findMount(mountsPath, dev string) (string, error) {
	want, err := filepath.EvalSymlinks(dev)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", dev)
	}

	f, err := os.Open(mountsPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read mount table")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		src, err := filepath.EvalSymlinks(unescapeMount(fields[0]))
		if err != nil || src != want {
			continue
		}
		return unescapeMount(fields[1]), nil
	}
	if err := sc.Err(); err != nil {
		return "", errors.Wrap(err, "failed to read mount table")
	}
	return "", errors.Errorf("%s is not mounted", dev)
}

// unescapeMount decodes the octal escapes (e.g. "\040" for a space) used in
// the mount table.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// verifyChecksums checks every file listed in dir's checksum file and
// returns how many were verified.
func verifyChecksums(dir string) (int, error) {
	list, err := os.ReadFile(filepath.Join(dir, checksumFile))
	if err != nil {
		return 0, errors.Wrap(err, "missing checksum file")
	}

	n := 0
	sc := bufio.NewScanner(bytes.NewReader(list))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sum, name, ok := strings.Cut(line, " ")
		if !ok {
			return n, errors.Errorf("malformed checksum line %q", line)
		}
		// sha256sum marks binary mode with '*'.
		name = strings.TrimPrefix(strings.TrimLeft(name, " "), "*")

		got, err := fileSHA256(filepath.Join(dir, name))
		if err != nil {
			return n, err
		}
		if !strings.EqualFold(got, sum) {
			return n, errors.Errorf("checksum mismatch for %s: got %s, want %s", name, got, sum)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, errors.Wrap(err, "failed to read checksum file")
	}
	if n == 0 {
		return 0, errors.New("empty checksum file")
	}
	return n, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
