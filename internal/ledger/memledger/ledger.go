// Package memledger is an in-memory ledger that runs the archive program's
// behavior locally. It backs the memory ledger mode used in development and
// the tests of every package that talks to a ledger.Gateway.
package memledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"lpp-backend/internal/ledger"
	appErrors "lpp-backend/pkg/errors"
)

// Rent parameters of the reference cluster: an account is exempt when it
// holds two years of rent for its data plus the fixed account overhead.
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThresholdYrs  = 2
)

// RentExemptBalance is the funding an account of size bytes needs.
func RentExemptBalance(size int) uint64 {
	return uint64(accountStorageOverhead+size) * lamportsPerByteYear * exemptionThresholdYrs
}

type account struct {
	lamports uint64
	owner    ledger.PublicKey
	data     []byte
}

type transaction struct {
	detail    ledger.TransactionDetail
	addresses map[ledger.PublicKey]bool
}

// Calls counts gateway invocations by method.
type Calls struct {
	List   int
	Get    int
	Rent   int
	Submit int
}

// Ledger implements ledger.Gateway in memory. It is safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	programID ledger.PublicKey
	slot      uint64
	history   []*transaction
	bySig     map[ledger.Signature]*transaction
	accounts  map[ledger.PublicKey]*account
	calls     Calls
	now       func() time.Time
	logger    *zap.Logger

	// Fault injection
	listErr      error
	listErrAfter int
	getErrs      map[ledger.Signature]error
	pruned       map[ledger.Signature]bool
	submitErr    error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock sets the clock used for block times.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger on which programID runs the archive program.
func New(programID ledger.PublicKey, opts ...Option) *Ledger {
	l := &Ledger{
		programID: programID,
		bySig:     make(map[ledger.Signature]*transaction),
		accounts:  make(map[ledger.PublicKey]*account),
		getErrs:   make(map[ledger.Signature]error),
		pruned:    make(map[ledger.Signature]bool),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListSignatures implements ledger.Reader.
func (l *Ledger) ListSignatures(ctx context.Context, address ledger.PublicKey, opts ledger.ListOptions) ([]ledger.SignatureInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls.List++
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewTransport("listing signatures", err)
	}
	if l.listErr != nil && l.calls.List > l.listErrAfter {
		return nil, l.listErr
	}

	limit := opts.Limit
	if limit == 0 {
		limit = ledger.MaxSignaturePageSize
	}
	if limit < 0 || limit > ledger.MaxSignaturePageSize {
		return nil, appErrors.NewTransport(fmt.Sprintf("invalid limit %d", opts.Limit), nil)
	}

	// Walk newest first, starting just past the cursor when one is given.
	start := len(l.history) - 1
	if opts.Before != "" {
		tx, ok := l.bySig[opts.Before]
		if !ok {
			return []ledger.SignatureInfo{}, nil
		}
		for i := start; i >= 0; i-- {
			if l.history[i] == tx {
				start = i - 1
				break
			}
		}
	}

	page := make([]ledger.SignatureInfo, 0, limit)
	for i := start; i >= 0 && len(page) < limit; i-- {
		tx := l.history[i]
		if !tx.addresses[address] {
			continue
		}
		page = append(page, ledger.SignatureInfo{
			Signature: tx.detail.Signature,
			Slot:      tx.detail.Slot,
			BlockTime: tx.detail.BlockTime,
			Failed:    tx.detail.Failed,
		})
	}
	return page, nil
}

// GetTransaction implements ledger.Reader.
func (l *Ledger) GetTransaction(ctx context.Context, sig ledger.Signature) (*ledger.TransactionDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls.Get++
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewTransport("fetching transaction", err)
	}
	if err, ok := l.getErrs[sig]; ok {
		return nil, err
	}
	tx, ok := l.bySig[sig]
	if !ok || l.pruned[sig] {
		return nil, appErrors.NewNotFound(fmt.Sprintf("transaction %s not found", sig))
	}
	detail := tx.detail
	detail.LogMessages = append([]string(nil), tx.detail.LogMessages...)
	return &detail, nil
}

// MinimumBalanceForRentExemption implements ledger.Writer.
func (l *Ledger) MinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls.Rent++
	if err := ctx.Err(); err != nil {
		return 0, appErrors.NewTransport("fetching rent exemption", err)
	}
	if size < 0 {
		return 0, appErrors.NewValidation("account size must not be negative")
	}
	return RentExemptBalance(size), nil
}

// SubmitAndConfirm implements ledger.Writer. The transaction is compiled,
// signed and its signatures verified like a real cluster would, then executed atomically:
// either every instruction applies or none does and nothing is recorded.
func (l *Ledger) SubmitAndConfirm(ctx context.Context, instructions []ledger.Instruction, signers []ledger.Keypair) (ledger.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls.Submit++
	if err := ctx.Err(); err != nil {
		return "", appErrors.NewSubmissionFailed("submitting transaction", err)
	}
	if l.submitErr != nil {
		return "", appErrors.NewSubmissionFailed("submitting transaction", l.submitErr)
	}
	if len(signers) == 0 {
		return "", appErrors.NewSubmissionFailed("transaction has no fee payer", nil)
	}

	blockhash, err := randomHash()
	if err != nil {
		return "", appErrors.NewSubmissionFailed("creating blockhash", err)
	}
	tx, err := ledger.BuildTransaction(instructions, blockhash, signers)
	if err != nil {
		return "", appErrors.NewSubmissionFailed("building transaction", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		return "", appErrors.NewSubmissionFailed("verifying transaction", err)
	}

	msg := tx.Message
	staged := make(map[ledger.PublicKey]*account)
	var logs []string
	for i := range msg.Instructions {
		ixLogs, err := l.execute(&msg, &msg.Instructions[i], staged)
		logs = append(logs, ixLogs...)
		if err != nil {
			l.logger.Debug("Transaction simulation failed",
				zap.Int("instruction", i),
				zap.Strings("logs", logs),
				zap.Error(err))
			return "", appErrors.NewSubmissionFailed(fmt.Sprintf("instruction %d failed", i), err)
		}
	}

	for key, acc := range staged {
		l.accounts[key] = acc
	}
	addresses := make(map[ledger.PublicKey]bool, len(msg.AccountKeys))
	for _, k := range msg.AccountKeys {
		addresses[k] = true
	}
	sig := ledger.TransactionID(tx)
	l.record(sig, logs, addresses, false)

	l.logger.Debug("Transaction confirmed", zap.String("signature", sig.String()), zap.Int("instructions", len(instructions)))
	return sig, nil
}

// execute runs one compiled instruction against staged state and returns its
// logs. Account writability comes from the message header, as on a cluster.
func (l *Ledger) execute(msg *solana.Message, ix *solana.CompiledInstruction, staged map[ledger.PublicKey]*account) ([]string, error) {
	programID, err := msg.ResolveProgramIDIndex(ix.ProgramIDIndex)
	if err != nil {
		return nil, err
	}
	invoke := fmt.Sprintf("Program %s invoke [1]", programID)
	success := fmt.Sprintf("Program %s success", programID)

	accounts, err := ix.ResolveInstructionAccounts(msg)
	if err != nil {
		return []string{invoke}, err
	}
	data := []byte(ix.Data)

	switch programID {
	case ledger.SystemProgramID:
		params, ok := ledger.DecodeCreateAccount(accounts, data)
		if !ok || len(accounts) != 2 {
			return []string{invoke}, fmt.Errorf("unsupported system instruction")
		}
		newKey := accounts[1].PublicKey
		if _, exists := l.lookup(newKey, staged); exists {
			return []string{invoke}, fmt.Errorf("account %s already in use", newKey)
		}
		if params.Lamports < RentExemptBalance(int(params.Space)) {
			return []string{invoke}, fmt.Errorf("account %s would not be rent exempt", newKey)
		}
		staged[newKey] = &account{
			lamports: params.Lamports,
			owner:    params.Owner,
			data:     make([]byte, params.Space),
		}
		return []string{invoke, success}, nil

	case l.programID:
		logs := []string{invoke}
		if !utf8.Valid(data) {
			return logs, fmt.Errorf("invalid instruction data")
		}
		if len(accounts) == 0 {
			return logs, fmt.Errorf("not enough account keys")
		}
		target := accounts[0]
		acc, ok := l.lookup(target.PublicKey, staged)
		if !ok || acc.owner != l.programID || !target.IsWritable {
			return logs, fmt.Errorf("invalid account data for %s", target.PublicKey)
		}
		if len(data) > len(acc.data) {
			return logs, fmt.Errorf("account %s too small for %d bytes", target.PublicKey, len(data))
		}
		next := *acc
		next.data = append([]byte(nil), acc.data...)
		copy(next.data, data)
		staged[target.PublicKey] = &next

		logs = append(logs,
			"Program log: Stored JSON data: "+string(data),
			fmt.Sprintf("Program %s consumed %d of 200000 compute units", programID, 1000+len(data)),
			success,
		)
		return logs, nil

	default:
		return []string{invoke}, fmt.Errorf("program %s is not deployed", programID)
	}
}

func (l *Ledger) lookup(key ledger.PublicKey, staged map[ledger.PublicKey]*account) (*account, bool) {
	if acc, ok := staged[key]; ok {
		return acc, true
	}
	acc, ok := l.accounts[key]
	return acc, ok
}

func (l *Ledger) record(sig ledger.Signature, logs []string, addresses map[ledger.PublicKey]bool, failed bool) {
	l.slot++
	blockTime := l.now().Unix()
	tx := &transaction{
		detail: ledger.TransactionDetail{
			Signature:   sig,
			Slot:        l.slot,
			BlockTime:   &blockTime,
			LogMessages: logs,
			Failed:      failed,
		},
		addresses: addresses,
	}
	l.history = append(l.history, tx)
	l.bySig[sig] = tx
}

// AppendTransaction records a transaction touching the program address with
// the given logs, bypassing execution. It seeds histories that the program
// itself would never produce, such as truncated or foreign log layouts.
func (l *Ledger) AppendTransaction(logs []string) ledger.Signature {
	l.mu.Lock()
	defer l.mu.Unlock()

	sig := randomSignature()
	l.record(sig, append([]string(nil), logs...), map[ledger.PublicKey]bool{l.programID: true}, false)
	return sig
}

// FailListing lets the next after listings succeed and fails every later one
// with err. Pass a nil err to clear the fault.
func (l *Ledger) FailListing(after int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listErr = err
	l.listErrAfter = after + l.calls.List
}

// FailTransaction makes fetching sig return err. Pass nil to clear.
func (l *Ledger) FailTransaction(sig ledger.Signature, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.getErrs, sig)
		return
	}
	l.getErrs[sig] = err
}

// Forget removes sig from the transaction store while keeping it in the
// signature history, the way a pruned node answers.
func (l *Ledger) Forget(sig ledger.Signature) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruned[sig] = true
}

// FailSubmissions makes every submission fail with err. Pass nil to clear.
func (l *Ledger) FailSubmissions(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

// Calls returns the number of gateway calls made so far.
func (l *Ledger) Calls() Calls {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// ResetCalls zeroes the call counters.
func (l *Ledger) ResetCalls() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listErrAfter -= l.calls.List
	l.calls = Calls{}
}

// AccountData returns a copy of an account's data.
func (l *Ledger) AccountData(key ledger.PublicKey) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), acc.data...), true
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

func randomHash() (ledger.Hash, error) {
	var h ledger.Hash
	_, err := rand.Read(h[:])
	return h, err
}

func randomSignature() ledger.Signature {
	var sig solana.Signature
	_, _ = rand.Read(sig[:])
	return ledger.SignatureOf(sig)
}

var _ ledger.Gateway = (*Ledger)(nil)
