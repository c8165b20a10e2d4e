// Package usbid looks up vendor and product names in the usb.ids database
// shipped with most Linux distributions.
//
// The pure-Go usbfs transport uses it to name devices in log output:
//
//	db := usbid.New()
//	db.Load()
//	name := db.Describe(0x04e8, 0x1234)
//
// When no database file is found every lookup returns an empty string and
// Describe falls back to the numeric identity. All methods are safe for
// concurrent use.
package usbid
