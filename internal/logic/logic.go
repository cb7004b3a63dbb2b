// Package logic holds the fixed-width signal values that travel between the
// controller's modules. Every constructor masks to the declared width, so a
// value wider than its bus cannot be represented.
package logic

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// FloorCodeWidth is the number of bits in a floor code.
	FloorCodeWidth = 4
	// FloorCodeMask selects the floor code bits.
	FloorCodeMask = 1<<FloorCodeWidth - 1

	// SegmentWidth is the number of segment lines on one display digit.
	SegmentWidth = 7
	// SegmentMask selects the segment bits.
	SegmentMask = 1<<SegmentWidth - 1

	// VectorWidth is the width of the switch and indicator buses.
	VectorWidth = 16

	// DigitCount is the number of multiplexed display digits.
	DigitCount = 4
	// DigitsInactive drives every active-low digit enable high.
	DigitsInactive DigitEnable = 1<<DigitCount - 1
)

// FloorCode is the 4-bit floor value owned by the floor state machine.
type FloorCode uint8

// Floor masks v to the floor code width.
func Floor(v uint64) FloorCode { return FloorCode(v & FloorCodeMask) }

func (f FloorCode) String() string { return fmt.Sprintf("%04b", uint8(f)) }

// MarshalText encodes the code as a decimal number.
func (f FloorCode) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// UnmarshalText accepts decimal, 0x hex or 0b binary and rejects values that
// do not fit the bus.
func (f *FloorCode) UnmarshalText(b []byte) error {
	v, err := parseWidth(string(b), FloorCodeWidth)
	if err != nil {
		return fmt.Errorf("floor code: %w", err)
	}
	*f = FloorCode(v)
	return nil
}

// Segments is a 7-bit display pattern, bit 0 = segment a ... bit 6 = segment g.
type Segments uint8

// Pattern masks v to the segment width.
func Pattern(v uint64) Segments { return Segments(v & SegmentMask) }

func (s Segments) String() string { return fmt.Sprintf("%07b", uint8(s)) }

// Lit reports whether segment i (0 = a) is lit for an active-low display.
func (s Segments) Lit(i int) bool { return s&(1<<i) == 0 }

func (s Segments) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%02x", uint8(s))), nil
}

func (s *Segments) UnmarshalText(b []byte) error {
	v, err := parseWidth(string(b), SegmentWidth)
	if err != nil {
		return fmt.Errorf("segments: %w", err)
	}
	*s = Segments(v)
	return nil
}

// Vector is a 16-line bus such as the slide switches or the indicator LEDs.
type Vector uint16

// Bit returns line i. Lines outside the bus read low.
func (v Vector) Bit(i int) bool {
	if i < 0 || i >= VectorWidth {
		return false
	}
	return v&(1<<i) != 0
}

// With returns a copy of v with line i driven to b.
func (v Vector) With(i int, b bool) Vector {
	if i < 0 || i >= VectorWidth {
		return v
	}
	if b {
		return v | 1<<i
	}
	return v &^ (1 << i)
}

func (v Vector) String() string { return fmt.Sprintf("%016b", uint16(v)) }

func (v Vector) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%04x", uint16(v))), nil
}

func (v *Vector) UnmarshalText(b []byte) error {
	n, err := parseWidth(string(b), VectorWidth)
	if err != nil {
		return fmt.Errorf("vector: %w", err)
	}
	*v = Vector(n)
	return nil
}

// DigitEnable carries the four active-low digit select lines.
type DigitEnable uint8

// Enabled reports whether digit i is selected (line driven low).
func (d DigitEnable) Enabled(i int) bool {
	if i < 0 || i >= DigitCount {
		return false
	}
	return d&(1<<i) == 0
}

func (d DigitEnable) String() string { return fmt.Sprintf("%04b", uint8(d)) }

func (d DigitEnable) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", uint8(d))), nil
}

func (d *DigitEnable) UnmarshalText(b []byte) error {
	n, err := parseWidth(string(b), DigitCount)
	if err != nil {
		return fmt.Errorf("digit enable: %w", err)
	}
	*d = DigitEnable(n)
	return nil
}

// ParseVector parses a bus value written as decimal, 0x hex or 0b binary.
func ParseVector(s string) (Vector, error) {
	var v Vector
	err := v.UnmarshalText([]byte(s))
	return v, err
}

func parseWidth(s string, width int) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if v>>width != 0 {
		return 0, fmt.Errorf("value %#x does not fit in %d bits", v, width)
	}
	return v, nil
}
