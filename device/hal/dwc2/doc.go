// Package dwc2 implements [hal.Controller] for the DesignWare USB 2.0 OTG
// core found on Nexell S5P4418/S5P6818 SoCs, operated in device slave mode
// without DMA.
//
// The controller is reached through a [hal.Registers] block. On target
// hardware that is the memory-mapped OTG register window; in tests it is a
// fake register file.
//
//	ctl := dwc2.New(mmio, dwc2.WithPHY(phy))
//	eng := device.NewEngine(ctl)
//	n, err := eng.Download(ctx, dst)
//
// PHY bring-up is SoC specific and supplied through the [PHY] interface.
package dwc2
