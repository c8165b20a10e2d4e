package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database caches vendor and product names from the USB ID database.
type Database struct {
	mu       sync.RWMutex
	paths    []string
	loaded   bool
	vendors  map[uint16]string // VID -> vendor name
	products map[uint32]string // (VID<<16)|PID -> product name
}

// New creates a database that searches paths, or DefaultPaths when none
// are given.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &Database{
		paths:    paths,
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}
}

// Load parses the first database file found. Subsequent calls do nothing.
// Returns false if no file could be opened; lookups then return "".
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.loaded {
		return len(db.vendors) > 0
	}
	db.loaded = true

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		db.parse(f)
		f.Close()
		return true
	}
	return false
}

// Parse reads entries in usb.ids format from r, adding to any already
// loaded.
func (db *Database) Parse(r io.Reader) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	db.parse(r)
}

// parse handles vendor lines ("xxxx  Name") and the tab-indented product
// lines that follow them. Any other section ends the vendor list.
func (db *Database) parse(r io.Reader) {
	scanner := bufio.NewScanner(r)
	vendor, inVendor := uint16(0), false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] == '\t' {
			if !inVendor || len(line) > 1 && line[1] == '\t' {
				continue // interface lines and class sections
			}
			id, name, ok := splitEntry(line[1:])
			if ok {
				db.products[uint32(vendor)<<16|uint32(id)] = name
			}
			continue
		}

		id, name, ok := splitEntry(line)
		if !ok {
			inVendor = false
			continue
		}
		vendor, inVendor = id, true
		db.vendors[vendor] = name
	}
}

// splitEntry splits "xxxx  Name" into its hex ID and name.
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimLeft(s[5:], " "), true
}

// LookupVendor returns the vendor name for vid, or "".
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// LookupProduct returns the product name for vid:pid, or "".
func (db *Database) LookupProduct(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[uint32(vid)<<16|uint32(pid)]
}

// Describe returns "Product (Vendor)" when both are known, whichever one is
// known otherwise, and "Unknown vvvv:pppp" when neither is.
func (db *Database) Describe(vid, pid uint16) string {
	vendor, product := db.LookupVendor(vid), db.LookupProduct(vid, pid)
	switch {
	case vendor != "" && product != "":
		return product + " (" + vendor + ")"
	case product != "":
		return product
	case vendor != "":
		return vendor
	}
	return fmt.Sprintf("Unknown %04x:%04x", vid, pid)
}
