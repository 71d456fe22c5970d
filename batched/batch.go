package batched

// State is the lifecycle of one batch's ring slot: filling, awaiting a
// proof, or fully installed on-chain.
type State uint8

const (
	StateFill State = iota
	StateReadyForZkp
	StateInserted
)

func (s State) String() string {
	switch s {
	case StateFill:
		return "Fill"
	case StateReadyForZkp:
		return "ReadyForZkp"
	case StateInserted:
		return "Inserted"
	default:
		return "Unknown"
	}
}

// Batch is one ring slot's worth of bookkeeping: a fixed-size group of
// elements subdivided into zkp-sized sub-batches, each installed by one
// proof.
type Batch struct {
	State State

	BatchSize    int
	ZkpBatchSize int

	NumInsertedElements int
	NumInsertedZkps     int

	// SequenceNumber and RootIndex are recorded once the batch reaches
	// StateInserted: the tree's sequence number and root-history slot at
	// the moment the batch's last zkp-batch was installed.
	SequenceNumber uint64
	RootIndex      int

	BloomFilterZeroed bool
}

func newBatch(batchSize, zkpBatchSize int) *Batch {
	return &Batch{BatchSize: batchSize, ZkpBatchSize: zkpBatchSize, State: StateFill}
}

// totalZkps is the number of zkp-batches this batch is divided into.
func (b *Batch) totalZkps() int {
	return b.BatchSize / b.ZkpBatchSize
}

// reset restores a just-installed batch to Fill so its ring slot can
// immediately start accepting new elements.
func (b *Batch) reset() {
	b.State = StateFill
	b.NumInsertedElements = 0
	b.NumInsertedZkps = 0
	b.SequenceNumber = 0
	b.RootIndex = 0
	b.BloomFilterZeroed = false
}
