// Package batch fans out batch-root installs across independent batched
// Merkle tree accounts using a goroutine worker pool over sync.WaitGroup:
// each tree in the fan-out is mutated at most once per call and each tree
// keeps its own mutex, so running requests against distinct trees
// concurrently never races. Parallelism never crosses into a single
// tree's own mutation path.
package batch

import (
	"fmt"
	"sync"

	"github.com/lumenstate/accumulator/batched"
)

// InstallRequest names one pending zkp-batch install against one
// independent batched tree account.
type InstallRequest struct {
	AccountID string
	Tree      *batched.Tree
	Queue     *batched.Queue
	NewRoot   [32]byte
	Proof     batched.CompressedProof
}

// InstallResult reports the outcome of one InstallRequest.
type InstallResult struct {
	AccountID string
	Success   bool
	Event     *batched.InstallEvent
	Error     error
}

// InstallBatchRoots processes install requests against their respective
// (independent) trees concurrently, sharding the work across numWorkers
// goroutines.
func InstallBatchRoots(requests []InstallRequest, numWorkers int) []InstallResult {
	if len(requests) == 0 {
		return nil
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(requests) {
		numWorkers = len(requests)
	}

	results := make([]InstallResult, len(requests))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = installOne(requests[i])
			}
		}()
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func installOne(req InstallRequest) InstallResult {
	if req.Tree == nil || req.Queue == nil {
		return InstallResult{AccountID: req.AccountID, Error: fmt.Errorf("batch: nil tree or queue for account %s", req.AccountID)}
	}
	event, err := req.Tree.InstallBatchRoot(req.Queue, req.NewRoot, req.Proof)
	return InstallResult{AccountID: req.AccountID, Success: err == nil, Event: event, Error: err}
}
