package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/nxboot/host"
	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
	"github.com/ardnew/nxboot/pkg/prof"
)

// options collects every flag the loader accepts.
type options struct {
	variant    variantValue
	inject     bool
	addrs      addrs
	nextSector sectorValue
	stdout     bool

	vid, pid   hex16Value
	backend    string
	timeout    time.Duration
	logLevel   string
	logFormat  string
	cpuProfile string
	memProfile string
}

func defaultOptions() *options {
	return &options{
		variant: variantValue(nsih.Verbatim),
		addrs: addrs{
			load:   nsih.DefaultLoadAddr,
			launch: nsih.DefaultLoadAddr,
		},
		vid:       hex16Value(host.DefaultVendorID),
		pid:       hex16Value(host.DefaultProductID),
		backend:   backendLibusb,
		logLevel:  "warn",
		logFormat: "text",
	}
}

// loader holds the process environment a command run uses.
type loader struct {
	stdout io.Writer
	stderr io.Writer
	// transport builds the host transport. Tests replace it.
	transport func(backend string, debug bool) (hal.Transport, error)
}

func newLoader(stdout, stderr io.Writer) *loader {
	return &loader{stdout: stdout, stderr: stderr, transport: openBackend}
}

// command builds the root command with fresh flag state.
func (l *loader) command() *cobra.Command {
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:   "loader [flags] <image>",
		Short: "Download a boot image to an S5P6818 in USB boot mode",
		Long: `loader packages a binary with a boot header and sends it to the
boot ROM over a single USB bulk transfer.

Without a header flag the image is sent verbatim and only its payload size
field is updated. Sizes are always padded to a multiple of 16 bytes.

  loader -h32 -l40000000 u-boot.bin
  loader -h64 -o bl1.bin > bl1.img`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return l.run(cmd.Context(), opts, args[0])
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.SortFlags = false
	f.Var(&opts.variant, "header", "header to prepend: verbatim, h32 or h64")
	f.BoolVar(&opts.inject, "inject", false, "write header fields into space reserved at the start of the image")
	f.VarP(loadValue{&opts.addrs}, "load", "l", "load and launch address (hex)")
	f.VarP(startValue{&opts.addrs}, "start", "s", "launch address (hex), must follow -l")
	f.VarP(&opts.nextSector, "next-sector", "a", "next load address in 512-byte sectors (decimal)")
	f.BoolVarP(&opts.stdout, "stdout", "o", false, "write the image to stdout instead of sending it")

	f.Var(&opts.vid, "vid", "USB vendor ID (hex)")
	f.Var(&opts.pid, "pid", "USB product ID (hex)")
	f.StringVar(&opts.backend, "backend", opts.backend, "USB transport: libusb or usbfs")
	f.DurationVar(&opts.timeout, "timeout", 0, "transfer timeout, 0 waits indefinitely")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", opts.logFormat, "log format: text or json")
	f.StringVar(&opts.cpuProfile, "cpuprofile", "", "write a CPU profile to file")
	f.StringVar(&opts.memProfile, "memprofile", "", "write a heap profile to file on exit")
	if !prof.Enabled {
		_ = f.MarkHidden("cpuprofile")
		_ = f.MarkHidden("memprofile")
	}

	cmd.SetOut(l.stdout)
	cmd.SetErr(l.stderr)
	return cmd
}

func (l *loader) configureLogging(opts *options) error {
	level, err := pkg.ParseLogLevel(opts.logLevel)
	if err != nil {
		return err
	}
	format, err := pkg.ParseLogFormat(opts.logFormat)
	if err != nil {
		return err
	}
	pkg.SetLogOutput(l.stderr, format)
	pkg.SetLogLevel(level)
	return nil
}

func (l *loader) run(ctx context.Context, opts *options, path string) (err error) {
	if err := l.configureLogging(opts); err != nil {
		return err
	}

	stop, err := prof.Start(opts.cpuProfile, opts.memProfile)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	defer func() {
		if perr := stop(); perr != nil {
			pkg.LogWarn(pkg.ComponentLoader, "profile", "error", perr)
		}
	}()

	input, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("%s: %w", path, pkg.ErrEmptyImage)
	}

	req, err := host.BuildImage(input, host.ImageOptions{
		Variant:      nsih.Variant(opts.variant),
		Inject:       opts.inject,
		LoadAddr:     opts.addrs.load,
		LaunchAddr:   opts.addrs.launch,
		NextLoadAddr: uint32(opts.nextSector) * nsih.SectorSize,
	})
	if err != nil {
		return err
	}
	pkg.LogInfo(pkg.ComponentLoader, "image ready", "file", path,
		"variant", req.Options.Variant, "size", req.Total(),
		"load", fmt.Sprintf("0x%08x", req.Header.LoadAddr),
		"launch", fmt.Sprintf("0x%08x", req.Header.LaunchAddr))

	if opts.stdout {
		_, err = l.stdout.Write(req.Buffer)
		return err
	}

	t, err := l.transport(opts.backend, pkg.GetLogLevel() <= slog.LevelDebug)
	if err != nil {
		return err
	}
	defer t.Close()

	topts := host.DefaultTransmitOptions()
	topts.VID, topts.PID = uint16(opts.vid), uint16(opts.pid)
	topts.Timeout = opts.timeout

	fmt.Fprintf(l.stderr, "Start transfer, size = %d\n", req.Total())
	res, err := host.Transmit(ctx, t, req.Buffer, topts)
	if err != nil {
		return err
	}
	if res.Short() {
		fmt.Fprintf(l.stderr, "Transferred only %d of %d bytes\nThis may fail to run\n",
			res.Transferred, res.Requested)
		return nil
	}
	fmt.Fprintln(l.stderr, "Transfer successful")
	return nil
}

// execute runs one loader invocation and returns the process exit code.
func (l *loader) execute(ctx context.Context, args []string) int {
	cmd := l.command()
	cmd.SetArgs(normalizeArgs(args))
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(l.stderr, "loader: %v\n", err)
		return 1
	}
	return 0
}
