// Package sim provides the discrete-event kernel for macsim, a simulator of
// medium-access-control protocols on a shared wireless channel.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - event.go: the closed set of event labels and the Handler capability
//   - simulator.go: the (time, sequence) ordered event loop
//   - queue.go: the drop-tail FIFO every MAC node owns
//   - packet.go: the PacketProcessor and CommChannel contracts nodes call into
//
// # Architecture
//
// The sim package defines the kernel and the collaborator interfaces;
// implementations live in sub-packages:
//   - sim/mac/: event-driven ALOHA and slotted p-persistent ALOHA nodes
//   - sim/channel/: shared-medium CommChannel
//   - sim/processor/: counting PacketProcessor with optional echo responses
//   - sim/distribution/: injected random wait distributions
//   - sim/topology/: node placement and transmit-partner sets
//   - sim/trace/: per-run trace records
//   - sim/trial/: the trial driver that wires everything and bounds the run
//   - sim/store/, sim/report/: persistence and rendering of trial results
//
// # Determinism
//
// Execution is single-threaded. Events with equal timestamps fire in the
// order they were scheduled, and every random draw comes from a
// PartitionedRNG stream, so a seed fully determines a trial.
package sim
