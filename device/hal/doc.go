// Package hal defines the hardware capability interface used by the device
// download engine.
//
// The engine never touches controller registers itself. It polls a
// [Controller] for interrupt status, pops receive FIFO entries, copies
// packets in and out of endpoint FIFOs, and arms, NAKs, or stalls endpoints.
//
// Two implementations exist:
//
//   - [github.com/ardnew/nxboot/device/hal/dwc2] drives a DesignWare OTG core
//     through a [Registers] block (memory-mapped I/O on target hardware)
//   - [github.com/ardnew/nxboot/device/hal/sim] is an in-memory model with a
//     scripted USB host, used for tests and the loopback example
//
// # Interrupt model
//
// There is no asynchronous interrupt delivery. The engine reads
// [Controller.InterruptStatus] in a loop, dispatches set bits to its
// handlers, then calls [Controller.AckInterrupts]. Implementations report
// status through the same bit layout ([IntReset], [IntEnumDone],
// [IntRxFIFO], ...), so the mapping from hardware to engine is a direct
// read.
package hal
