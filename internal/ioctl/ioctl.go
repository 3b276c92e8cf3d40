// Package ioctl issues the framebuffer device control requests.
package ioctl

import "fmt"

// Command is an ioctl request number.
type Command uintptr

// Framebuffer requests, from <linux/fb.h>. These predate the _IOC encoding and
// carry no direction or size bits.
const (
	FBIOGetVScreenInfo Command = 0x4600
	FBIOPutVScreenInfo Command = 0x4601
	FBIOGetFScreenInfo Command = 0x4602
	FBIOPanDisplay     Command = 0x4606
	FBIOBlank          Command = 0x4611
)

// Blanking levels for FBIOBlank.
const (
	BlankUnblank   = 0
	BlankNormal    = 1
	BlankPowerdown = 4
)

func (c Command) String() string {
	switch c {
	case FBIOGetVScreenInfo:
		return "FBIOGET_VSCREENINFO"
	case FBIOPutVScreenInfo:
		return "FBIOPUT_VSCREENINFO"
	case FBIOGetFScreenInfo:
		return "FBIOGET_FSCREENINFO"
	case FBIOPanDisplay:
		return "FBIOPAN_DISPLAY"
	case FBIOBlank:
		return "FBIOBLANK"
	default:
		return fmt.Sprintf("ioctl %#04x", uintptr(c))
	}
}
