package ledger

import "context"

// MaxSignaturePageSize is the largest page a signature listing may return.
const MaxSignaturePageSize = 1000

// ListOptions pages through an address's signature history, newest first.
// Before is the exclusive cursor: only signatures older than it are returned.
type ListOptions struct {
	Before Signature
	Limit  int
}

// SignatureInfo is one entry of an address's signature history.
type SignatureInfo struct {
	Signature Signature
	Slot      uint64
	BlockTime *int64
	Failed    bool
}

// TransactionDetail is a fetched transaction reduced to what the archive reads.
type TransactionDetail struct {
	Signature   Signature
	Slot        uint64
	BlockTime   *int64
	LogMessages []string
	Failed      bool
}

// Reader is the read half of the ledger surface.
type Reader interface {
	// ListSignatures returns at most opts.Limit signatures touching address,
	// newest first, all older than opts.Before when it is set. An empty page
	// means the history is exhausted.
	ListSignatures(ctx context.Context, address PublicKey, opts ListOptions) ([]SignatureInfo, error)

	// GetTransaction fetches one transaction. A transaction the ledger does
	// not know yields a NOT_FOUND error.
	GetTransaction(ctx context.Context, sig Signature) (*TransactionDetail, error)
}

// Writer is the write half of the ledger surface.
type Writer interface {
	// MinimumBalanceForRentExemption returns the funding an account of size
	// bytes needs to be exempt from rent.
	MinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error)

	// SubmitAndConfirm signs the instructions with signers (the first one
	// pays the fees), submits them atomically and blocks until the ledger
	// reports the configured commitment. Failures are SUBMISSION_FAILED.
	SubmitAndConfirm(ctx context.Context, instructions []Instruction, signers []Keypair) (Signature, error)
}

// Gateway is the full ledger surface.
type Gateway interface {
	Reader
	Writer
}
