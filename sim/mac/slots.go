package mac

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/macsim/sim"
)

// SlotDriver advances slotted nodes one slot at a time. Slot k is stamped
// k*slotLength on the shared simulator clock, and every node's Run is called
// in a fixed order within a slot.
type SlotDriver struct {
	sim        *sim.Simulator
	nodes      []*SlottedALOHA
	slotLength float64

	slot int64
	busy int64 // node-slots in which a node had a packet

	// BeforeSlot, if set, runs after the clock is stamped and before any node
	// runs. The trial driver injects traffic here.
	BeforeSlot func(now float64) error
}

// NewSlotDriver returns a driver starting at slot 0.
func NewSlotDriver(s *sim.Simulator, slotLength float64, nodes []*SlottedALOHA) *SlotDriver {
	if slotLength <= 0 {
		panic(fmt.Sprintf("NewSlotDriver: slotLength must be > 0, got %v", slotLength))
	}
	return &SlotDriver{sim: s, nodes: nodes, slotLength: slotLength}
}

// Now returns the time stamp of the next slot to run.
func (d *SlotDriver) Now() float64 {
	return float64(d.slot) * d.slotLength
}

// Slots returns how many slots have run.
func (d *SlotDriver) Slots() int64 { return d.slot }

// Busy returns the number of node-slots in which a node had a packet to send.
func (d *SlotDriver) Busy() int64 { return d.busy }

// Step runs a single slot.
func (d *SlotDriver) Step() error {
	now := d.Now()
	if err := d.sim.AdvanceTo(now); err != nil {
		return err
	}
	if d.BeforeSlot != nil {
		if err := d.BeforeSlot(now); err != nil {
			return err
		}
	}
	for _, n := range d.nodes {
		did, err := n.Run(now, d.sim)
		if err != nil {
			return fmt.Errorf("slot %d: %w", d.slot, err)
		}
		if did {
			d.busy++
		}
	}
	d.slot++
	return nil
}

// Run executes slots more slots.
func (d *SlotDriver) Run(slots int) error {
	for i := 0; i < slots; i++ {
		if err := d.Step(); err != nil {
			return err
		}
	}
	logrus.Debugf("slot driver: %d slots run, %d busy node-slots", d.slot, d.busy)
	return nil
}

// RunUntil executes every slot stamped strictly before horizon.
func (d *SlotDriver) RunUntil(horizon float64) error {
	for d.Now() < horizon {
		if err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Flush resolves receptions from the last slot run without starting a new
// one, so end-of-run statistics include them.
func (d *SlotDriver) Flush() error {
	now := d.Now()
	if err := d.sim.AdvanceTo(now); err != nil {
		return err
	}
	for _, n := range d.nodes {
		n.flush(now)
	}
	return nil
}
