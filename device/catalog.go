package device

import "github.com/ardnew/nxboot/device/hal"

// ConfigBlockSize is the wTotalLength of the configuration block:
// configuration, interface, and two endpoint descriptors.
const ConfigBlockSize = ConfigurationDescriptorSize + InterfaceDescriptorSize + 2*EndpointDescriptorSize

// Catalog holds the prebuilt descriptor tables for both supported speeds.
// Tables are built once and never modified.
type Catalog struct {
	vid, pid uint16
	device   [2][DeviceDescriptorSize]byte
	config   [2][ConfigBlockSize]byte
}

// catalog indexes
const (
	tableHigh = 0
	tableFull = 1
)

// NewCatalog builds the full-speed and high-speed descriptor tables for the
// given identity.
func NewCatalog(vid, pid uint16) *Catalog {
	c := &Catalog{vid: vid, pid: pid}
	c.build(tableHigh, 0x0200, ControlMaxPacketHigh, BulkMaxPacketHigh)
	c.build(tableFull, 0x0110, ControlMaxPacketFull, BulkMaxPacketFull)
	return c
}

func (c *Catalog) build(idx int, bcdUSB uint16, mps0, bulk int) {
	dev := DeviceDescriptor{
		USBVersion:        bcdUSB,
		DeviceClass:       ClassVendor,
		DeviceSubClass:    ClassVendor,
		DeviceProtocol:    ClassVendor,
		MaxPacketSize0:    uint8(mps0),
		VendorID:          c.vid,
		ProductID:         c.pid,
		NumConfigurations: 1,
	}
	dev.MarshalTo(c.device[idx][:])

	cfg := ConfigurationDescriptor{
		TotalLength:        ConfigBlockSize,
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         ConfigAttrBusPowered | ConfigAttrSelfPowered,
		MaxPower:           25,
	}
	iface := InterfaceDescriptor{
		NumEndpoints:      2,
		InterfaceClass:    ClassVendor,
		InterfaceSubClass: ClassVendor,
		InterfaceProtocol: ClassVendor,
	}
	in := EndpointDescriptor{
		EndpointAddress: BulkInAddress,
		Attributes:      EndpointTypeBulk,
		MaxPacketSize:   uint16(bulk),
	}
	out := EndpointDescriptor{
		EndpointAddress: BulkOutAddress,
		Attributes:      EndpointTypeBulk,
		MaxPacketSize:   uint16(bulk),
	}

	buf := c.config[idx][:]
	n := cfg.MarshalTo(buf)
	n += iface.MarshalTo(buf[n:])
	n += in.MarshalTo(buf[n:])
	out.MarshalTo(buf[n:])
}

func tableIndex(speed hal.Speed) int {
	if speed == hal.SpeedFull {
		return tableFull
	}
	return tableHigh
}

// Identity returns the vendor and product IDs reported by the catalog.
func (c *Catalog) Identity() (vid, pid uint16) {
	return c.vid, c.pid
}

// Device returns the device descriptor for speed. The returned slice
// aliases the catalog and must not be modified.
func (c *Catalog) Device(speed hal.Speed) []byte {
	return c.device[tableIndex(speed)][:]
}

// Config returns the configuration block for speed. The returned slice
// aliases the catalog and must not be modified.
func (c *Catalog) Config(speed hal.Speed) []byte {
	return c.config[tableIndex(speed)][:]
}

// IdentityFromECID derives the USB identity from the chip ECID word.
// A zero ECID yields the default identity.
func IdentityFromECID(ecid uint32) (vid, pid uint16) {
	if ecid == 0 {
		return DefaultVendorID, DefaultProductID
	}
	return uint16(ecid >> 16), uint16(ecid & 0xFFFF)
}
