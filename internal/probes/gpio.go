// Copyright 2026 The hwtest Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package probes

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boardlab/hwtest/errors"
)

// gpioPin is a pin of the sysfs GPIO interface rooted at root.
type gpioPin struct {
	root string
	num  int
}

func (g *gpioPin) dir() string {
	return filepath.Join(g.root, fmt.Sprintf("gpio%d", g.num))
}

// Export makes the pin available unless it already is.
func (g *gpioPin) Export() error {
	if _, err := os.Stat(g.dir()); err == nil {
		return nil
	}
	return g.writeFile(filepath.Join(g.root, "export"), strconv.Itoa(g.num))
}

// Unexport releases the pin if it is exported.
func (g *gpioPin) Unexport() error {
	if _, err := os.Stat(g.dir()); os.IsNotExist(err) {
		return nil
	}
	return g.writeFile(filepath.Join(g.root, "unexport"), strconv.Itoa(g.num))
}

// SetDirection writes "in" or "out".
func (g *gpioPin) SetDirection(dir string) error {
	return g.writeFile(filepath.Join(g.dir(), "direction"), dir)
}

// Read returns the pin value.
func (g *gpioPin) Read() (int, error) {
	p := filepath.Join(g.dir(), "value")
	b, err := os.ReadFile(p)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read GPIO %d", g.num)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrapf(err, "bad value in %s", p)
	}
	return v, nil
}

func (g *gpioPin) writeFile(path, s string) error {
	if err := os.WriteFile(path, []byte(s), 0644); err != nil {
		return errors.Wrapf(err, "failed to write GPIO %d", g.num)
	}
	return nil
}
