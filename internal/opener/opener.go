// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package opener opens generated files with the default application of the desktop
// through the OpenURI portal.
package opener

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/godbus/dbus/v5"
)

const (
	portalDestination = "org.freedesktop.portal.Desktop"
	portalPath        = "/org/freedesktop/portal/desktop"
	openURIMethod     = "org.freedesktop.portal.OpenURI.OpenURI"
)

type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Opener asks the desktop portal to open files.
type Opener struct {
	connect func() (caller, func() error, error)
}

func New() *Opener {
	return &Opener{connect: connectPortal}
}

// Open opens the file at path.
func (o *Opener) Open(ctx context.Context, path string) error {
	uri, err := FileURI(path)
	if err != nil {
		return err
	}
	portal, closer, err := o.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer func() { _ = closer() }()

	call := portal.CallWithContext(ctx, openURIMethod, 0, "", uri, map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, call.Err)
	}
	return nil
}

// FileURI returns the file URI of the absolute form of path.
func FileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func connectPortal() (caller, func() error, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, err
	}
	return conn.Object(portalDestination, portalPath), conn.Close, nil
}
