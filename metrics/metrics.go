package metrics

type Metrics interface {
	// The number of leaves in the pool tree after an operation
	LeafCount(uint64)
	// The number of spent nullifiers after an operation
	NullifierCount(uint64)
	// A deposit of the given amount was accepted
	Deposit(uint64)
	// A withdraw of the given amount was accepted
	Withdraw(uint64)
	// An instruction was rejected, labelled by error kind
	Rejected(op string, kind string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) LeafCount(uint64) {}
func (Nop) NullifierCount(uint64) {}
func (Nop) Deposit(uint64) {}
func (Nop) Withdraw(uint64) {}
func (Nop) Rejected(string, string) {}
