// Package irq provides the GBA interrupt controller: the IE, IF and IME
// registers and a deterministic choice of the next interrupt to service.
package irq

import (
	"fmt"

	"github.com/go-logr/logr"
)

// Source is an interrupt source. Its value is its bit position in IE and
// IF, and lower values are serviced first.
type Source uint8

// Interrupt sources.
const (
	VBlank Source = iota
	HBlank
	VCount
	Timer0
	Timer1
	Timer2
	Timer3
	Serial
	DMA0
	DMA1
	DMA2
	DMA3
	Keypad
	GamePak

	// NumSources is the number of interrupt sources.
	NumSources = 14
)

var sourceNames = [NumSources]string{
	"VBlank", "HBlank", "VCount",
	"Timer0", "Timer1", "Timer2", "Timer3",
	"Serial",
	"DMA0", "DMA1", "DMA2", "DMA3",
	"Keypad", "GamePak",
}

func (s Source) String() string {
	if s < NumSources {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// Mask returns the IE/IF bit of the source.
func (s Source) Mask() uint16 {
	return 1 << s
}

const validMask uint16 = 1<<NumSources - 1

// Controller aggregates interrupt requests from the peripherals.
type Controller struct {
	enabled   uint16 // IE
	requested uint16 // IF
	master    bool   // IME

	logger logr.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for request tracing.
func WithLogger(logger logr.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller with every source disabled and
// nothing pending.
func NewController(opts ...Option) *Controller {
	c := &Controller{logger: logr.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request raises a source. Requesting an already pending source has no
// further effect.
func (c *Controller) Request(s Source) {
	if s >= NumSources {
		return
	}
	if c.requested&s.Mask() == 0 {
		c.logger.V(2).Info("interrupt requested", "source", s.String())
	}
	c.requested |= s.Mask()
}

// Clear withdraws a single pending source.
func (c *Controller) Clear(s Source) {
	if s >= NumSources {
		return
	}
	c.requested &^= s.Mask()
}

// Acknowledge clears the IF bits set in mask, as a write to IF does.
func (c *Controller) Acknowledge(mask uint16) {
	c.requested &^= mask
}

// Enabled returns IE.
func (c *Controller) Enabled() uint16 {
	return c.enabled
}

// SetEnabled writes IE.
func (c *Controller) SetEnabled(v uint16) {
	c.enabled = v & validMask
}

// Flags returns IF.
func (c *Controller) Flags() uint16 {
	return c.requested
}

// MasterEnabled returns IME.
func (c *Controller) MasterEnabled() bool {
	return c.master
}

// SetMasterEnabled writes IME.
func (c *Controller) SetMasterEnabled(on bool) {
	c.master = on
}

// IsPending reports whether s has been requested and not yet cleared,
// regardless of IE and IME.
func (c *Controller) IsPending(s Source) bool {
	return s < NumSources && c.requested&s.Mask() != 0
}

// Pending returns the source the CPU should service next: the
// lowest-numbered source that is both requested and enabled, provided IME
// is set.
func (c *Controller) Pending() (Source, bool) {
	if !c.master {
		return 0, false
	}
	return c.firstOf(c.requested & c.enabled)
}

// Highest returns the lowest-numbered requested source, ignoring IE and
// IME.
func (c *Controller) Highest() (Source, bool) {
	return c.firstOf(c.requested)
}

// WakeUp reports whether a halted CPU should resume. Halt ends on any
// requested and enabled source even while IME is clear.
func (c *Controller) WakeUp() bool {
	return c.requested&c.enabled != 0
}

func (c *Controller) firstOf(set uint16) (Source, bool) {
	for s := Source(0); s < NumSources; s++ {
		if set&s.Mask() != 0 {
			return s, true
		}
	}
	return 0, false
}

// Reset clears every register.
func (c *Controller) Reset() {
	c.enabled = 0
	c.requested = 0
	c.master = false
}

// State is a copy of the controller registers.
type State struct {
	IE  uint16
	IF  uint16
	IME bool
}

// State returns the controller registers.
func (c *Controller) State() State {
	return State{IE: c.enabled, IF: c.requested, IME: c.master}
}

// SetState restores the controller registers.
func (c *Controller) SetState(s State) {
	c.enabled = s.IE & validMask
	c.requested = s.IF & validMask
	c.master = s.IME
}
