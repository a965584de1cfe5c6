package memledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lpp-backend/internal/ledger"
	appErrors "lpp-backend/pkg/errors"
)

var programID = ledger.MustPublicKey("DcF2QAbpQimbsa3WPqBkyw1R3QAaUECM4udchmXEb928")

func store(t *testing.T, l *Ledger, payer ledger.Keypair, data string) (ledger.Signature, ledger.PublicKey) {
	t.Helper()
	ctx := context.Background()

	acct, err := ledger.NewKeypair()
	require.NoError(t, err)
	lamports, err := l.MinimumBalanceForRentExemption(ctx, len(data))
	require.NoError(t, err)

	ixs := []ledger.Instruction{
		ledger.CreateAccount(payer.PublicKey(), acct.PublicKey(), lamports, uint64(len(data)), programID),
		ledger.StoreRecord(programID, acct.PublicKey(), payer.PublicKey(), []byte(data)),
	}
	sig, err := l.SubmitAndConfirm(ctx, ixs, []ledger.Keypair{payer, acct})
	require.NoError(t, err)
	return sig, acct.PublicKey()
}

func TestSubmitAndConfirmStoresPayload(t *testing.T) {
	l := New(programID, WithLogger(zap.NewNop()))
	payer, err := ledger.NewKeypair()
	require.NoError(t, err)

	sig, acct := store(t, l, payer, `"{\"name\":\"Asha\"}"`)
	assert.NotEmpty(t, sig)

	data, ok := l.AccountData(acct)
	require.True(t, ok)
	assert.Equal(t, `"{\"name\":\"Asha\"}"`, string(data))

	tx, err := l.GetTransaction(context.Background(), sig)
	require.NoError(t, err)
	require.Len(t, tx.LogMessages, 6)
	assert.Equal(t, "Program 11111111111111111111111111111111 invoke [1]", tx.LogMessages[0])
	assert.Equal(t, "Program 11111111111111111111111111111111 success", tx.LogMessages[1])
	assert.Equal(t, fmt.Sprintf("Program %s invoke [1]", programID), tx.LogMessages[2])
	assert.Equal(t, `Program log: Stored JSON data: "{\"name\":\"Asha\"}"`, tx.LogMessages[3])
	assert.Equal(t, fmt.Sprintf("Program %s success", programID), tx.LogMessages[5])
	require.NotNil(t, tx.BlockTime)
}

func TestSubmitAndConfirmRejects(t *testing.T) {
	ctx := context.Background()
	payer, _ := ledger.NewKeypair()
	acct, _ := ledger.NewKeypair()

	t.Run("missing account signer", func(t *testing.T) {
		l := New(programID)
		ix := ledger.CreateAccount(payer.PublicKey(), acct.PublicKey(), RentExemptBalance(4), 4, programID)
		_, err := l.SubmitAndConfirm(ctx, []ledger.Instruction{ix}, []ledger.Keypair{payer})
		require.Error(t, err)
		assert.True(t, appErrors.IsSubmissionFailed(err))
		assert.Equal(t, 0, l.Len())
	})

	t.Run("underfunded account", func(t *testing.T) {
		l := New(programID)
		ix := ledger.CreateAccount(payer.PublicKey(), acct.PublicKey(), 1, 4, programID)
		_, err := l.SubmitAndConfirm(ctx, []ledger.Instruction{ix}, []ledger.Keypair{payer, acct})
		assert.True(t, appErrors.IsSubmissionFailed(err))
	})

	t.Run("payload larger than account is atomic", func(t *testing.T) {
		l := New(programID)
		ixs := []ledger.Instruction{
			ledger.CreateAccount(payer.PublicKey(), acct.PublicKey(), RentExemptBalance(2), 2, programID),
			ledger.StoreRecord(programID, acct.PublicKey(), payer.PublicKey(), []byte("too long")),
		}
		_, err := l.SubmitAndConfirm(ctx, ixs, []ledger.Keypair{payer, acct})
		assert.True(t, appErrors.IsSubmissionFailed(err))

		_, ok := l.AccountData(acct.PublicKey())
		assert.False(t, ok, "account creation rolled back")
		assert.Equal(t, 0, l.Len())
	})

	t.Run("injected fault", func(t *testing.T) {
		l := New(programID)
		l.FailSubmissions(errors.New("node is behind"))
		_, err := l.SubmitAndConfirm(ctx, nil, []ledger.Keypair{payer})
		require.Error(t, err)
		assert.True(t, appErrors.IsSubmissionFailed(err))
		assert.Contains(t, err.Error(), "node is behind")
	})
}

func TestListSignaturesPaging(t *testing.T) {
	ctx := context.Background()
	l := New(programID)

	var sigs []ledger.Signature
	for i := 0; i < 5; i++ {
		sigs = append(sigs, l.AppendTransaction([]string{fmt.Sprintf("log %d", i)}))
	}

	page, err := l.ListSignatures(ctx, programID, ledger.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, sigs[4], page[0].Signature, "newest first")
	assert.Equal(t, sigs[3], page[1].Signature)

	page, err = l.ListSignatures(ctx, programID, ledger.ListOptions{Before: sigs[3], Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, sigs[2], page[0].Signature)
	assert.Equal(t, sigs[1], page[1].Signature)

	page, err = l.ListSignatures(ctx, programID, ledger.ListOptions{Before: sigs[1], Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, sigs[0], page[0].Signature)

	page, err = l.ListSignatures(ctx, programID, ledger.ListOptions{Before: sigs[0], Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)

	other, _ := ledger.NewKeypair()
	page, err = l.ListSignatures(ctx, other.PublicKey(), ledger.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = l.ListSignatures(ctx, programID, ledger.ListOptions{Limit: ledger.MaxSignaturePageSize + 1})
	assert.True(t, appErrors.IsTransport(err))

	assert.Equal(t, 6, l.Calls().List)
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	l := New(programID)
	a := l.AppendTransaction([]string{"a"})
	b := l.AppendTransaction([]string{"b"})

	down := appErrors.NewTransport("connection refused", nil)
	l.FailListing(1, down)
	_, err := l.ListSignatures(ctx, programID, ledger.ListOptions{})
	require.NoError(t, err)
	_, err = l.ListSignatures(ctx, programID, ledger.ListOptions{})
	assert.Equal(t, down, err)
	l.FailListing(0, nil)

	l.FailTransaction(a, down)
	_, err = l.GetTransaction(ctx, a)
	assert.True(t, appErrors.IsTransport(err))

	l.Forget(b)
	_, err = l.GetTransaction(ctx, b)
	assert.True(t, appErrors.IsNotFound(err))
	page, err := l.ListSignatures(ctx, programID, ledger.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, page, 2, "pruned transactions stay listed")

	l.ResetCalls()
	assert.Equal(t, Calls{}, l.Calls())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(programID)

	_, err := l.ListSignatures(ctx, programID, ledger.ListOptions{})
	assert.True(t, appErrors.IsTransport(err))
	_, err = l.GetTransaction(ctx, "x")
	assert.True(t, appErrors.IsTransport(err))
}
