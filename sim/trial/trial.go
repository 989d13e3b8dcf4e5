// Package trial wires a complete MAC experiment from a Config: node
// placement, protocol nodes, traffic, the run loop and the summary Result.
package trial

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/macsim/sim"
	"github.com/inference-sim/macsim/sim/channel"
	"github.com/inference-sim/macsim/sim/distribution"
	"github.com/inference-sim/macsim/sim/mac"
	"github.com/inference-sim/macsim/sim/processor"
	"github.com/inference-sim/macsim/sim/topology"
	"github.com/inference-sim/macsim/sim/trace"
)

// horizonChunks is how many pieces an event-driven run is split into so
// cancellation is noticed before the horizon.
const horizonChunks = 100

// slotsPerCancelCheck is how often the slotted loop polls ctx.
const slotsPerCancelCheck = 1024

// NodeResult is one node's share of a Result.
type NodeResult struct {
	ID       sim.NodeID
	Location topology.Coordinate
	Partners int
	mac.Stats
}

// Result summarizes one finished trial.
type Result struct {
	RunID    string
	Protocol string
	Seed     int64
	Nodes    int
	Horizon  float64

	Offered     int // traffic arrivals offered to node queues
	Dropped     int // arrivals and echoes rejected by full queues
	Transmitted int
	Delivered   int
	Collisions  int
	Echoes      int // echo responses queued

	// Throughput is clean deliveries per packet time across the network.
	Throughput   float64
	MeanDelay    float64
	DelayStdDev  float64
	MeanLinkCost float64

	// Events is dispatched events (aloha) or slots run (slotted).
	Events int64
	// Truncated is set when the event budget stopped the run before the horizon.
	Truncated bool
	Elapsed   time.Duration

	PerNode []NodeResult
	Trace   *trace.Summary
}

// String renders a one-line summary for logs.
func (r *Result) String() string {
	return fmt.Sprintf("%s seed=%d nodes=%d tx=%d delivered=%d collisions=%d throughput=%.4f",
		r.Protocol, r.Seed, r.Nodes, r.Transmitted, r.Delivered, r.Collisions, r.Throughput)
}

// world is everything a run shares across nodes.
type world struct {
	cfg       Config
	sim       *sim.Simulator
	rng       *sim.PartitionedRNG
	packets   *sim.PacketFactory
	processor *processor.Counting
	channel   *channel.Shared
	trace     *trace.SimulationTrace
	points    []topology.Coordinate
	partners  [][]int
	offered   int
}

// Run executes the trial described by cfg. Runs with the same Config produce
// identical Results apart from RunID and Elapsed.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trial config: %w", err)
	}
	start := time.Now()

	w, err := newWorld(cfg)
	if err != nil {
		return nil, err
	}
	logrus.Infof("trial: %s with %d nodes, seed=%d, horizon=%g", cfg.Protocol, len(w.points), cfg.Seed, cfg.Horizon)

	var (
		nodes     []mac.Node
		events    int64
		truncated bool
	)
	switch cfg.Protocol {
	case ProtocolSlotted:
		nodes, events, err = w.runSlotted(ctx)
	default:
		nodes, events, truncated, err = w.runALOHA(ctx)
	}
	if err != nil {
		return nil, err
	}

	res := w.result(nodes)
	res.Events = events
	res.Truncated = truncated
	res.Elapsed = time.Since(start)
	logrus.Infof("trial complete: %s", res)
	return res, nil
}

func newWorld(cfg Config) (*world, error) {
	s := sim.NewSimulator()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))

	var pp topology.PointProcess
	switch cfg.Topology.Kind {
	case TopologyPoisson:
		pp = topology.Poisson{Density: cfg.Topology.Density, Width: cfg.Topology.Width, Height: cfg.Topology.Height}
	default:
		pp = topology.Grid{Spacing: cfg.Topology.Spacing, Width: cfg.Topology.Width, Height: cfg.Topology.Height}
	}
	points := pp.Points(rng.ForSubsystem(sim.SubsystemTopology))
	if len(points) == 0 {
		return nil, fmt.Errorf("topology %s placed no nodes", cfg.Topology.Kind)
	}

	packets := sim.NewPacketFactory(s)
	return &world{
		cfg:       cfg,
		sim:       s,
		rng:       rng,
		packets:   packets,
		processor: processor.NewCounting(s, packets, cfg.Echo),
		channel:   channel.NewShared(cfg.BitRate),
		trace:     trace.New(trace.Level(cfg.TraceLevel)),
		points:    points,
		partners:  topology.Partners(points, cfg.Topology.Radius),
	}, nil
}

// link installs every node's partner set from the reachability lists.
func link[N mac.Node](nodes []N, partners [][]int) {
	for i, n := range nodes {
		rx := make([]sim.Receiver, 0, len(partners[i]))
		for _, j := range partners[i] {
			rx = append(rx, nodes[j])
		}
		n.SetPartners(rx)
	}
}

func (w *world) runALOHA(ctx context.Context) ([]mac.Node, int64, bool, error) {
	tmpl := mac.Template{
		Channel:   w.channel,
		Processor: w.processor,
		Queue:     sim.NewFIFO(w.cfg.QueueCapacity),
		Trace:     w.trace,
	}
	alohas := make([]*mac.ALOHA, len(w.points))
	for i, at := range w.points {
		id := sim.NodeID(i)
		wait, err := distribution.FromSpec(w.cfg.Wait, w.rng.ForNode(id))
		if err != nil {
			return nil, 0, false, fmt.Errorf("node %d wait: %w", id, err)
		}
		t := tmpl
		t.Wait = wait
		alohas[i] = t.Instantiate(id, at)
	}
	link(alohas, w.partners)

	w.sim.SetMaxEvents(w.cfg.MaxEvents)
	traffic := w.rng.ForSubsystem(sim.SubsystemTraffic)
	for _, n := range alohas {
		if err := n.Start(w.sim); err != nil {
			return nil, 0, false, err
		}
		if w.cfg.ArrivalRate > 0 {
			src := &source{
				node:  n,
				world: w,
				gap:   distribution.NewExponential(traffic, 1/w.cfg.ArrivalRate),
			}
			if err := w.sim.After(src.gap.Sample(), src, sim.WaitEnded); err != nil {
				return nil, 0, false, err
			}
		}
	}

	truncated := false
	step := w.cfg.Horizon / horizonChunks
	for k := 1; k <= horizonChunks; k++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, false, err
		}
		until := float64(k) * step
		if k == horizonChunks {
			until = w.cfg.Horizon
		}
		err := w.sim.RunUntil(until)
		if errors.Is(err, sim.ErrEventBudgetExhausted) {
			logrus.Warnf("trial stopped early: %v", err)
			truncated = true
			break
		}
		if err != nil {
			return nil, 0, false, err
		}
	}

	nodes := make([]mac.Node, len(alohas))
	for i, n := range alohas {
		nodes[i] = n
	}
	return nodes, w.sim.Dispatched(), truncated, nil
}

// source generates Poisson traffic for one event-driven node.
type source struct {
	node  *mac.ALOHA
	world *world
	gap   distribution.Distribution
}

func (src *source) String() string { return fmt.Sprintf("traffic_%d", src.node.NodeID()) }

func (src *source) HandleEvent(now float64, label sim.EventLabel, s *sim.Simulator) error {
	if label != sim.WaitEnded {
		return fmt.Errorf("%w: %s dispatched %s", sim.ErrUnknownEvent, src, label)
	}
	if src.world.offer(src.node, now) {
		if err := src.node.Trigger(s); err != nil {
			return err
		}
	}
	return s.After(src.gap.Sample(), src, sim.WaitEnded)
}

func (w *world) offer(n mac.Node, now float64) bool {
	w.offered++
	return n.Enqueue(w.packets.New(n.NodeID(), w.cfg.PacketBits), now)
}

func (w *world) runSlotted(ctx context.Context) ([]mac.Node, int64, error) {
	tmpl := mac.SlottedTemplate{
		Channel:   w.channel,
		Processor: w.processor,
		P:         w.cfg.P,
		Queue:     sim.NewFIFO(w.cfg.QueueCapacity),
		Trace:     w.trace,
	}
	slotted := make([]*mac.SlottedALOHA, len(w.points))
	for i, at := range w.points {
		id := sim.NodeID(i)
		slotted[i] = tmpl.Instantiate(id, at, w.rng.ForNode(id))
	}
	link(slotted, w.partners)

	d := mac.NewSlotDriver(w.sim, w.cfg.SlotLength, slotted)
	if w.cfg.ArrivalRate > 0 {
		d.BeforeSlot = w.bernoulliArrivals(slotted, w.rng.ForSubsystem(sim.SubsystemTraffic))
	}

	for d.Now() < w.cfg.Horizon {
		if d.Slots()%slotsPerCancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		if err := d.Step(); err != nil {
			return nil, 0, err
		}
	}
	if err := d.Flush(); err != nil {
		return nil, 0, err
	}

	nodes := make([]mac.Node, len(slotted))
	for i, n := range slotted {
		nodes[i] = n
	}
	return nodes, d.Slots(), nil
}

// bernoulliArrivals offers each node one packet per slot with probability
// ArrivalRate*SlotLength, capped at 1.
func (w *world) bernoulliArrivals(nodes []*mac.SlottedALOHA, rng *rand.Rand) func(float64) error {
	prob := math.Min(1, w.cfg.ArrivalRate*w.cfg.SlotLength)
	return func(now float64) error {
		for _, n := range nodes {
			if rng.Float64() < prob {
				w.offer(n, now)
			}
		}
		return nil
	}
}

func (w *world) result(nodes []mac.Node) *Result {
	res := &Result{
		RunID:        uuid.NewString(),
		Protocol:     w.cfg.Protocol,
		Seed:         w.cfg.Seed,
		Nodes:        len(nodes),
		Horizon:      w.cfg.Horizon,
		Offered:      w.offered,
		MeanLinkCost: topology.MeanLinkCost(w.points, w.partners),
		PerNode:      make([]NodeResult, len(nodes)),
		Trace:        trace.Summarize(w.trace),
	}

	var total mac.Stats
	for i, n := range nodes {
		st := n.Stats()
		total.Add(st)
		res.PerNode[i] = NodeResult{
			ID:       n.NodeID(),
			Location: n.Location(),
			Partners: len(w.partners[i]),
			Stats:    st,
		}
	}
	echoes, echoDrops := w.processor.Echoes()
	res.Transmitted = total.Transmitted
	res.Delivered = total.Delivered
	res.Collisions = total.Collisions
	res.Echoes = echoes
	res.Dropped = total.Dropped + echoDrops

	packetTime := float64(w.cfg.PacketBits) / w.cfg.BitRate
	if w.cfg.Protocol == ProtocolSlotted {
		packetTime = w.cfg.SlotLength
	}
	res.Throughput = float64(res.Delivered) * packetTime / w.cfg.Horizon

	switch delays := w.processor.Delays(); len(delays) {
	case 0:
	case 1:
		res.MeanDelay = delays[0]
	default:
		res.MeanDelay, res.DelayStdDev = stat.MeanStdDev(delays, nil)
	}
	return res
}
