package sim

import (
	"context"
	"fmt"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/pkg"
)

// Attach queues a bus reset followed by speed enumeration at speed.
func (c *Controller) Attach(speed hal.Speed) {
	code := hal.EnumSpeedHigh
	if speed == hal.SpeedFull {
		code = hal.EnumSpeedFull
	}
	c.AttachCode(code)
}

// AttachCode is Attach with a raw enumeration speed code, which may be one
// the engine rejects.
func (c *Controller) AttachCode(code uint32) {
	c.mu.Lock()
	c.speedCode = code
	c.mu.Unlock()
	c.Reset()
	c.push(event{kind: evEnumDone, code: code})
}

// Reset queues a bus reset.
func (c *Controller) Reset() {
	c.push(event{kind: evReset})
}

// Setup queues a raw SETUP packet without running the rest of the transfer.
func (c *Controller) Setup(raw []byte) {
	c.push(event{kind: evSetup, data: append([]byte(nil), raw...)})
}

// inToken queues an IN token on ep, preceded by a SETUP when setup is not
// nil, and waits for the first packet the device answers on ep.
func (c *Controller) inToken(ctx context.Context, ep uint8, setup []byte) (Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mark := len(c.inbox)
	if setup != nil {
		c.queue = append(c.queue, event{kind: evSetup, data: append([]byte(nil), setup...)})
	}
	c.queue = append(c.queue, event{kind: evInToken, ep: ep})
	c.broadcast()

	var got Packet
	err := c.waitLocked(ctx, func() bool {
		for _, p := range c.inbox[mark:] {
			if p.Endpoint == ep {
				got = p
				return true
			}
		}
		return false
	})
	return got, err
}

// stalled drains the IN token still queued behind a stalled SETUP so its
// answer cannot be mistaken for the next transfer's, then returns ErrStall.
func (c *Controller) stalled(ctx context.Context) error {
	if err := c.WaitIdle(ctx); err != nil {
		return err
	}
	return pkg.ErrStall
}

// ControlIn runs a control read: SETUP, IN data stage until a short packet
// or length bytes, then a zero-length OUT status stage.
func (c *Controller) ControlIn(ctx context.Context, setup []byte, length int) ([]byte, error) {
	var data []byte
	for {
		p, err := c.inToken(ctx, 0, setup)
		setup = nil
		if err != nil {
			return data, err
		}
		if p.Stall {
			return data, c.stalled(ctx)
		}
		data = append(data, p.Data...)

		c.mu.Lock()
		mps := c.ctrlMax
		c.mu.Unlock()
		if len(p.Data) < mps || len(data) >= length {
			break
		}
	}
	c.push(event{kind: evOut, ep: 0, data: []byte{}})
	return data, nil
}

// ControlOut runs a control write with no data stage: SETUP, then an IN
// status stage.
func (c *Controller) ControlOut(ctx context.Context, setup []byte) error {
	p, err := c.inToken(ctx, 0, setup)
	if err != nil {
		return err
	}
	if p.Stall {
		return c.stalled(ctx)
	}
	if len(p.Data) != 0 {
		return fmt.Errorf("status stage carried %d bytes: %w", len(p.Data), pkg.ErrInvalidRequest)
	}
	return nil
}

// BulkOut sends data to OUT endpoint ep in max-packet chunks, each one
// waiting until the device arms the endpoint. It stops early without error
// when the device powers down, returning the bytes accepted so far.
func (c *Controller) BulkOut(ctx context.Context, ep uint8, data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := 0
	for sent < len(data) {
		gone := false
		err := c.waitLocked(ctx, func() bool {
			if c.poweredOn > 0 && !c.powered {
				gone = true
				return true
			}
			return c.outArmed[ep] > 0 && c.outMax[ep] > 0
		})
		if err != nil {
			return sent, err
		}
		if gone {
			return sent, nil
		}
		n := min(c.outMax[ep], len(data)-sent)
		c.outArmed[ep] = 0
		c.queue = append(c.queue, event{kind: evOut, ep: ep, data: append([]byte(nil), data[sent:sent+n]...)})
		c.broadcast()
		sent += n
	}
	return sent, nil
}

// BulkIn issues one IN token on endpoint ep. A NAK returns no data.
func (c *Controller) BulkIn(ctx context.Context, ep uint8) ([]byte, error) {
	p, err := c.inToken(ctx, ep, nil)
	if err != nil {
		return nil, err
	}
	if p.Stall {
		return nil, pkg.ErrStall
	}
	return p.Data, nil
}

// WaitIdle blocks until the device has retired every queued event.
func (c *Controller) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitLocked(ctx, func() bool { return len(c.queue) == 0 })
}
