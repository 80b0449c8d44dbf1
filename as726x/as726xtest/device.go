// Package as726xtest simulates the status/write/read register handshake of an
// AS7262/AS7263 so the driver can be exercised without hardware.
package as726xtest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mklimuk/spectral"
)

const (
	regStatus = 0x00
	regWrite  = 0x01
	regRead   = 0x02

	rxValid = 0x01
	txValid = 0x02

	regHWVersion    = 0x01
	regControlSetup = 0x04
	regChannelData  = 0x08
	dataReady       = 0x02
)

type OpKind int

const (
	OpStatus OpKind = iota
	OpReadPort
	OpReadSelect
	OpWriteSelect
	OpWriteData
)

func (k OpKind) String() string {
	switch k {
	case OpStatus:
		return "status"
	case OpReadPort:
		return "read-port"
	case OpReadSelect:
		return "read-select"
	case OpWriteSelect:
		return "write-select"
	case OpWriteData:
		return "write-data"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one bus transaction seen by the device. Reg is the virtual register
// involved (if any), Value the byte transferred.
type Op struct {
	Kind  OpKind
	Reg   byte
	Value byte
}

var _ spectral.Transport = &Device{}

// Device is a simulated AS726x. Zero delays make every handshake complete on
// the first poll; the exported knobs slow it down or break it.
type Device struct {
	mx sync.Mutex

	// Registers is the virtual register file.
	Registers [0x80]byte
	// TxBusyPolls is how many status reads report TX_VALID after each write.
	TxBusyPolls int
	// RxDelayPolls is how many status reads pass before RX_VALID shows up after a read select.
	RxDelayPolls int
	// ConversionPolls is how many CONTROL_SETUP reads pass after arming before
	// data ready is set. Negative never completes.
	ConversionPolls int
	// StatusFunc, if set, rewrites every status byte returned.
	StatusFunc func(status byte) byte
	// Fail, if set, is consulted before every transaction; a non-nil error is returned to the caller.
	Fail func(op Op) error

	ops          []Op
	violations   []string
	txBusy       int
	rxValid      bool
	rxDelay      int
	rxByte       byte
	pendingWrite int
	conversion   int
}

func New() *Device {
	d := &Device{pendingWrite: -1, conversion: -1}
	d.Registers[regHWVersion] = 0x3F
	return d
}

// Stale leaves an unread result byte in the read register.
func (d *Device) Stale(b byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.rxValid = true
	d.rxByte = b
}

// SetReading stores raw channel counts, high byte first.
func (d *Device) SetReading(r [6]uint16) {
	d.mx.Lock()
	defer d.mx.Unlock()
	for i, v := range r {
		binary.BigEndian.PutUint16(d.Registers[regChannelData+2*i:], v)
	}
}

func (d *Device) Register(reg byte) byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.Registers[reg]
}

func (d *Device) SetRegister(reg byte, v byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.Registers[reg] = v
}

// Ops returns the transactions seen so far.
func (d *Device) Ops() []Op {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]Op(nil), d.ops...)
}

// Count returns how many transactions of kind touched reg; any register matches when reg is negative.
func (d *Device) Count(kind OpKind, reg int) int {
	n := 0
	for _, op := range d.Ops() {
		if op.Kind == kind && (reg < 0 || int(op.Reg) == reg) {
			n++
		}
	}
	return n
}

// Violations lists protocol rules broken by the host, e.g. writing while TX_VALID was set.
func (d *Device) Violations() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]string(nil), d.violations...)
}

func (d *Device) Reset() {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.ops = nil
	d.violations = nil
}

func (d *Device) Transfer(ctx context.Context, w []byte, readLen int) ([]byte, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(w) != 1 || readLen != 1 {
		return nil, fmt.Errorf("unsupported transfer: write %x, read %d bytes", w, readLen)
	}
	switch w[0] {
	case regStatus:
		op := Op{Kind: OpStatus, Value: d.status()}
		if err := d.fail(op); err != nil {
			return nil, err
		}
		d.ops = append(d.ops, op)
		d.afterStatus()
		return []byte{op.Value}, nil
	case regRead:
		op := Op{Kind: OpReadPort, Value: d.rxByte}
		if err := d.fail(op); err != nil {
			return nil, err
		}
		if !d.rxValid {
			d.violations = append(d.violations, "read port drained without RX_VALID")
		}
		d.ops = append(d.ops, op)
		d.rxValid = false
		return []byte{op.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported transfer from register %#02x", w[0])
	}
}

func (d *Device) Send(ctx context.Context, w []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(w) != 2 || w[0] != regWrite {
		return fmt.Errorf("unsupported send: %x", w)
	}
	b := w[1]
	var op Op
	switch {
	case d.pendingWrite >= 0:
		op = Op{Kind: OpWriteData, Reg: byte(d.pendingWrite), Value: b}
	case b&0x80 != 0:
		op = Op{Kind: OpWriteSelect, Reg: b & 0x7F}
	default:
		op = Op{Kind: OpReadSelect, Reg: b}
	}
	if err := d.fail(op); err != nil {
		return err
	}
	if d.txBusy > 0 {
		d.violations = append(d.violations, fmt.Sprintf("%s %#02x sent while TX_VALID set", op.Kind, op.Reg))
	}
	d.ops = append(d.ops, op)
	switch op.Kind {
	case OpWriteData:
		d.write(op.Reg, b)
		d.pendingWrite = -1
	case OpWriteSelect:
		d.pendingWrite = int(op.Reg)
	case OpReadSelect:
		if d.rxValid {
			d.violations = append(d.violations, fmt.Sprintf("read select %#02x with unread result", op.Reg))
		}
		d.rxByte = d.read(op.Reg)
		d.rxValid = true
		d.rxDelay = d.RxDelayPolls
	}
	d.txBusy = d.TxBusyPolls
	return nil
}

func (d *Device) fail(op Op) error {
	if d.Fail == nil {
		return nil
	}
	return d.Fail(op)
}

func (d *Device) status() byte {
	var s byte
	if d.rxValid && d.rxDelay == 0 {
		s |= rxValid
	}
	if d.txBusy > 0 {
		s |= txValid
	}
	if d.StatusFunc != nil {
		s = d.StatusFunc(s)
	}
	return s
}

func (d *Device) afterStatus() {
	if d.txBusy > 0 {
		d.txBusy--
	}
	if d.rxValid && d.rxDelay > 0 {
		d.rxDelay--
	}
}

func (d *Device) write(reg byte, v byte) {
	d.Registers[reg] = v
	if reg == regControlSetup && v&dataReady == 0 {
		d.conversion = d.ConversionPolls
		if d.conversion == 0 {
			d.Registers[regControlSetup] |= dataReady
			d.conversion = -1
		}
	}
}

func (d *Device) read(reg byte) byte {
	v := d.Registers[reg]
	if reg == regControlSetup && d.conversion > 0 {
		d.conversion--
		if d.conversion == 0 {
			d.Registers[regControlSetup] |= dataReady
			d.conversion = -1
		}
	}
	return v
}
