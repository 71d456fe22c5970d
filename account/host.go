package account

import (
	"log/slog"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/batched"
)

// BatchInstallSummary reports the outcome of one host-orchestrated
// InstallBatchRoot call, including whether the tree crossed its rollover
// threshold as a side effect.
type BatchInstallSummary struct {
	TreeID         accumulator.Bytes32
	NewRoot        accumulator.Bytes32
	SequenceNumber uint64
	Event          *batched.InstallEvent
	RolloverDue    bool
}

// Host wraps a batched tree with the rollover-threshold bookkeeping and
// structured logging a production host performs around every
// instruction, sitting between raw instruction handling and the tree's
// own mutation methods. A nil Logger disables logging entirely.
type Host struct {
	TreeID            accumulator.Bytes32
	Tree              *batched.Tree
	RolloverThreshold uint64 // percent, 0 disables the check
	Logger            *slog.Logger
}

func (h *Host) log() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

// InstallBatchRoot installs a zkp-batch root against the queue's pending
// batch, then checks whether the tree has crossed its rollover
// threshold, logging both the install and (if applicable) the rollover
// warning.
func (h *Host) InstallBatchRoot(queue *batched.Queue, newRoot accumulator.Bytes32, proof batched.CompressedProof) (*BatchInstallSummary, error) {
	log := h.log()
	event, err := h.Tree.InstallBatchRoot(queue, newRoot, proof)
	if err != nil {
		log.Error("batch root install failed", "treeId", h.TreeID.Hex(), "error", err)
		return nil, err
	}

	summary := &BatchInstallSummary{
		TreeID:         h.TreeID,
		NewRoot:        newRoot,
		SequenceNumber: event.SequenceNumber,
		Event:          event,
	}
	log.Info("batch root installed",
		"treeId", h.TreeID.Hex(),
		"root", newRoot.Hex(),
		"batchIndex", event.BatchIndex,
		"zkpBatchIndex", event.ZkpBatchIndex,
		"sequenceNumber", event.SequenceNumber)

	if h.RolloverThreshold > 0 {
		if err := CheckRollover(h.Tree.Height(), h.Tree.NextIndex(), h.RolloverThreshold); err != nil {
			summary.RolloverDue = true
			log.Warn("tree crossed rollover threshold", "treeId", h.TreeID.Hex(), "nextIndex", h.Tree.NextIndex())
		}
	}

	return summary, nil
}
