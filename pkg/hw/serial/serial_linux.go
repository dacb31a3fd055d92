// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package serial configures the serial console: line settings from the
// platform config, and raw mode for reading hotkeys. Only implemented for
// linux.
package serial

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/purecloudlabs/platformbm/pkg/platcfg"
)

type Port struct {
	f *os.File
}

var baudRates = map[uint64]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	3000000: unix.B3000000,
}

var dataBits = map[uint8]uint32{5: unix.CS5, 6: unix.CS6, 7: unix.CS7, 8: unix.CS8}

// Open opens dev and applies the line settings in u, in raw mode.
func Open(dev string, u platcfg.Uart) (*Port, error) {
	f, err := os.OpenFile(dev, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0666)
	if err != nil {
		return nil, err
	}
	p := &Port{f: f}

	opts, err := p.TcGetAttr()
	if err != nil {
		p.f.Close()
		return nil, err
	}
	makeRaw(opts)
	if err = setLine(opts, u); err != nil {
		p.f.Close()
		return nil, err
	}
	//local line; no modem control
	opts.Cflag &^= unix.HUPCL | unix.CRTSCTS
	opts.Cflag |= unix.CLOCAL

	if err = p.TcSetAttr(opts); err != nil {
		p.f.Close()
		return nil, err
	}
	if err = unix.SetNonblock(int(p.f.Fd()), false); err != nil {
		p.f.Close()
		return nil, err
	}
	_ = p.Flush()
	return p, nil
}

// Applies baud rate, data bits, parity and stop bits.
func setLine(opts *unix.Termios, u platcfg.Uart) error {
	speed, ok := baudRates[u.BaudRate]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", u.BaudRate)
	}
	size, ok := dataBits[u.DataBits]
	if !ok {
		return fmt.Errorf("unsupported data bits %d", u.DataBits)
	}
	opts.Cflag &^= unix.CBAUD | unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB
	opts.Cflag |= speed | size | unix.CREAD
	opts.Ispeed = speed
	opts.Ospeed = speed

	switch u.Parity {
	case platcfg.ParityNone, platcfg.ParityDefault:
	case platcfg.ParityEven:
		opts.Cflag |= unix.PARENB
	case platcfg.ParityOdd:
		opts.Cflag |= unix.PARENB | unix.PARODD
	case platcfg.ParityMark:
		opts.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case platcfg.ParitySpace:
		opts.Cflag |= unix.PARENB | unix.CMSPAR
	default:
		return fmt.Errorf("unsupported parity %s", u.Parity)
	}

	switch u.StopBits {
	case platcfg.StopBits1, platcfg.StopBitsDefault:
	case platcfg.StopBits2:
		opts.Cflag |= unix.CSTOPB
	default:
		//1.5 only exists for 5 data bits, where CSTOPB selects it
		if u.DataBits != 5 {
			return fmt.Errorf("unsupported stop bits %s", u.StopBits)
		}
		opts.Cflag |= unix.CSTOPB
	}
	return nil
}

// Input is delivered a byte at a time, without echo or line editing.
func makeRaw(opts *unix.Termios) {
	opts.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.INPCK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	opts.Iflag |= unix.IGNPAR
	opts.Lflag &^= unix.ISIG | unix.ICANON | unix.IEXTEN | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHOCTL | unix.ECHOKE

	for i := range opts.Cc {
		opts.Cc[i] = 0
	}
	//blocking read: VTIME = 0, VMIN = 1
	opts.Cc[unix.VMIN] = 1
}

// MakeRaw puts the terminal on fd in raw mode for key input, leaving output
// processing alone. The returned func restores the previous settings.
func MakeRaw(fd uintptr) (restore func() error, err error) {
	old, err := TcGetAttr(fd)
	if err != nil {
		return nil, err
	}
	raw := *old
	makeRaw(&raw)
	if err = TcSetAttr(fd, &raw); err != nil {
		return nil, err
	}
	return func() error { return TcSetAttr(fd, old) }, nil
}

func (p *Port) TcGetAttr() (*unix.Termios, error)  { return TcGetAttr(p.f.Fd()) }
func (p *Port) TcSetAttr(opts *unix.Termios) error { return TcSetAttr(p.f.Fd(), opts) }
func (p *Port) Close() error                       { return p.f.Close() }
func (p *Port) Flush() error                       { return Flush(p.f.Fd()) }
func (p *Port) Read(b []byte) (int, error)         { return p.f.Read(b) }
func (p *Port) Write(b []byte) (int, error)        { return p.f.Write(b) }

func TcGetAttr(fd uintptr) (*unix.Termios, error) {
	opts := &unix.Termios{}
	_, _, errno := unix.Syscall6(unix.SYS_IOCTL, fd, unix.TCGETS, uintptr(unsafe.Pointer(opts)), 0, 0, 0)
	if errno != 0 {
		return nil, errno
	}
	return opts, nil
}

func TcSetAttr(fd uintptr, opts *unix.Termios) error {
	_, _, errno := unix.Syscall6(unix.SYS_IOCTL, fd, unix.TCSETS, uintptr(unsafe.Pointer(opts)), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func Flush(fd uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.TCFLSH, unix.TCIOFLUSH)
	if errno != 0 {
		return errno
	}
	return nil
}
