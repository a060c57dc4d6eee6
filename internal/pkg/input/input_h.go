package input

import "fmt"

const (
	BUS_PCI       = 0x01
	BUS_ISAPNP    = 0x02
	BUS_USB       = 0x03
	BUS_HIL       = 0x04
	BUS_BLUETOOTH = 0x05
	BUS_VIRTUAL   = 0x06

	BUS_ISA         = 0x10
	BUS_I8042       = 0x11
	BUS_XTKBD       = 0x12
	BUS_RS232       = 0x13
	BUS_GAMEPORT    = 0x14
	BUS_PARPORT     = 0x15
	BUS_AMIGA       = 0x16
	BUS_ADB         = 0x17
	BUS_I2C         = 0x18
	BUS_HOST        = 0x19
	BUS_GSC         = 0x1A
	BUS_ATARI       = 0x1B
	BUS_SPI         = 0x1C
	BUS_RMI         = 0x1D
	BUS_CEC         = 0x1E
	BUS_INTEL_ISHTP = 0x1F
)

var busNames = map[uint16]string{
	BUS_PCI:         "pci",
	BUS_ISAPNP:      "isapnp",
	BUS_USB:         "usb",
	BUS_HIL:         "hil",
	BUS_BLUETOOTH:   "bluetooth",
	BUS_VIRTUAL:     "virtual",
	BUS_ISA:         "isa",
	BUS_I8042:       "i8042",
	BUS_XTKBD:       "xtkbd",
	BUS_RS232:       "rs232",
	BUS_GAMEPORT:    "gameport",
	BUS_PARPORT:     "parport",
	BUS_AMIGA:       "amiga",
	BUS_ADB:         "adb",
	BUS_I2C:         "i2c",
	BUS_HOST:        "host",
	BUS_GSC:         "gsc",
	BUS_ATARI:       "atari",
	BUS_SPI:         "spi",
	BUS_RMI:         "rmi",
	BUS_CEC:         "cec",
	BUS_INTEL_ISHTP: "ishtp",
}

func busName(bus uint16) string {
	if name, ok := busNames[bus]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", bus)
}
