// Package sim implements an in-memory device controller with a scripted
// USB host attached to it.
//
// The [Controller] satisfies [hal.Controller] so the download engine can run
// unmodified against it. The host side queues bus events (reset, speed
// enumeration, SETUP packets, OUT data, IN tokens) that the engine observes
// one at a time through InterruptStatus and retires with AckInterrupts.
// IN transactions answered by the engine are collected as [Packet] values.
//
// [Transport] bridges the simulated bus to the host loader's transport
// interface, so a full loader-to-engine download can run in one process:
//
//	ctl := sim.New()
//	eng := device.NewEngine(ctl)
//	go eng.Download(ctx, dst)
//	res, err := host.Transmit(ctx, sim.NewTransport(ctl, hal.SpeedHigh), image, opts)
//
// The engine and the scripted host run on separate goroutines. All state is
// guarded by one mutex; waiters are woken by closing a broadcast channel.
package sim
