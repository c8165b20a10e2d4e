package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

// addrs holds the load and launch addresses. -l and -s both write into it
// as they are parsed, so a later flag wins.
type addrs struct {
	load   uint32
	launch uint32
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: hex address %q", pkg.ErrInvalidAddress, s)
	}
	return uint32(v), nil
}

// loadValue sets both the load and launch address.
type loadValue struct{ a *addrs }

func (v loadValue) String() string {
	if v.a == nil {
		return ""
	}
	return fmt.Sprintf("%08x", v.a.load)
}

func (v loadValue) Set(s string) error {
	addr, err := parseHex32(s)
	if err != nil {
		return err
	}
	v.a.load, v.a.launch = addr, addr
	return nil
}

func (loadValue) Type() string { return "hex" }

// startValue sets only the launch address.
type startValue struct{ a *addrs }

func (v startValue) String() string {
	if v.a == nil {
		return ""
	}
	return fmt.Sprintf("%08x", v.a.launch)
}

func (v startValue) Set(s string) error {
	addr, err := parseHex32(s)
	if err != nil {
		return err
	}
	v.a.launch = addr
	return nil
}

func (startValue) Type() string { return "hex" }

// hex16Value is a hexadecimal USB identifier.
type hex16Value uint16

func (v *hex16Value) String() string { return fmt.Sprintf("%04x", uint16(*v)) }

func (v *hex16Value) Set(s string) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return fmt.Errorf("%w: hex id %q", pkg.ErrInvalidParameter, s)
	}
	*v = hex16Value(n)
	return nil
}

func (*hex16Value) Type() string { return "hex" }

// sectorValue is a decimal sector number.
type sectorValue uint32

func (v *sectorValue) String() string { return strconv.FormatUint(uint64(*v), 10) }

func (v *sectorValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: decimal sector %q", pkg.ErrInvalidParameter, s)
	}
	*v = sectorValue(n)
	return nil
}

func (*sectorValue) Type() string { return "sector" }

// variantValue selects the header variant by name.
type variantValue nsih.Variant

func (v *variantValue) String() string { return nsih.Variant(*v).String() }

func (v *variantValue) Set(s string) error {
	for _, c := range []nsih.Variant{nsih.Verbatim, nsih.Header32, nsih.Header64} {
		if strings.EqualFold(s, c.String()) {
			*v = variantValue(c)
			return nil
		}
	}
	return fmt.Errorf("%w: header %q (want verbatim, h32 or h64)", pkg.ErrInvalidParameter, s)
}

func (*variantValue) Type() string { return "variant" }

var (
	_ pflag.Value = loadValue{}
	_ pflag.Value = startValue{}
	_ pflag.Value = (*hex16Value)(nil)
	_ pflag.Value = (*sectorValue)(nil)
	_ pflag.Value = (*variantValue)(nil)
)

// legacyArgs maps the historical single-dash spellings onto long flags.
var legacyArgs = map[string]string{
	"-h32":    "--header=h32",
	"-h64":    "--header=h64",
	"-inject": "--inject",
}

// normalizeArgs rewrites legacy spellings. -e<hex> is the old name of -s.
// Arguments after "--" are left alone.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if long, ok := legacyArgs[arg]; ok {
			arg = long
		} else if strings.HasPrefix(arg, "-e") && len(arg) > 2 {
			arg = "-s" + arg[2:]
		}
		out = append(out, arg)
	}
	return out
}
