package batched

import (
	"errors"
	"fmt"
)

// ErrQueueFull reports that every ring slot is Fill-ineligible: all
// batches are awaiting or mid zkp-batch install.
var ErrQueueFull = errors.New("batched: queue has no batch accepting fills")

// ErrBatchNotReady reports an install call against a batch that has not
// yet collected batch_size elements.
var ErrBatchNotReady = errors.New("batched: batch is not ready for a zkp install")

// InvalidQueueConfigError reports a non-positive or non-dividing queue
// sizing configuration.
type InvalidQueueConfigError struct {
	NumBatches, BatchSize, ZkpBatchSize int
}

func (e *InvalidQueueConfigError) Error() string {
	return fmt.Sprintf("batched: invalid queue config (num_batches=%d, batch_size=%d, zkp_batch_size=%d)",
		e.NumBatches, e.BatchSize, e.ZkpBatchSize)
}

// InvalidHeightError reports a tree height outside (0, hasher.Depth].
type InvalidHeightError struct {
	Height uint16
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("batched: invalid height %d", e.Height)
}
