package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"lpp-backend/internal/ledger"
	appErrors "lpp-backend/pkg/errors"
)

var commitmentRank = map[string]int{
	"processed": 1,
	"confirmed": 2,
	"finalized": 3,
}

func blockTime(t *solana.UnixTimeSeconds) *int64 {
	if t == nil {
		return nil
	}
	v := int64(*t)
	return &v
}

// ListSignatures implements ledger.Reader with getSignaturesForAddress.
func (c *Client) ListSignatures(ctx context.Context, address ledger.PublicKey, opts ledger.ListOptions) ([]ledger.SignatureInfo, error) {
	req := &solanarpc.GetSignaturesForAddressOpts{Commitment: c.readCommitment()}
	if opts.Limit > 0 {
		limit := opts.Limit
		req.Limit = &limit
	}
	if opts.Before != "" {
		before, err := opts.Before.Decode()
		if err != nil {
			return nil, appErrors.NewValidation(err.Error())
		}
		req.Before = before
	}

	entries, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, address, req)
	if err != nil {
		return nil, fail("getSignaturesForAddress", err)
	}

	out := make([]ledger.SignatureInfo, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		out = append(out, ledger.SignatureInfo{
			Signature: ledger.SignatureOf(e.Signature),
			Slot:      e.Slot,
			BlockTime: blockTime(e.BlockTime),
			Failed:    e.Err != nil,
		})
	}
	return out, nil
}

// GetTransaction implements ledger.Reader with getTransaction.
func (c *Client) GetTransaction(ctx context.Context, sig ledger.Signature) (*ledger.TransactionDetail, error) {
	wire, err := sig.Decode()
	if err != nil {
		return nil, appErrors.NewNotFound(fmt.Sprintf("transaction %s not found", sig))
	}

	version := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, wire, &solanarpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.readCommitment(),
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, fail("getTransaction", err)
	}

	detail := &ledger.TransactionDetail{
		Signature: sig,
		Slot:      result.Slot,
		BlockTime: blockTime(result.BlockTime),
	}
	if result.Meta != nil {
		detail.LogMessages = result.Meta.LogMessages
		detail.Failed = result.Meta.Err != nil
	}
	return detail, nil
}

// MinimumBalanceForRentExemption implements ledger.Writer.
func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error) {
	if size < 0 {
		return 0, appErrors.NewValidation("account size must not be negative")
	}
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, uint64(size), c.commitment)
	if err != nil {
		return 0, fail("getMinimumBalanceForRentExemption", err)
	}
	return lamports, nil
}

// SubmitAndConfirm implements ledger.Writer: it fetches a recent blockhash,
// signs, sends, and polls the signature status until the configured
// commitment is reached.
func (c *Client) SubmitAndConfirm(ctx context.Context, instructions []ledger.Instruction, signers []ledger.Keypair) (ledger.Signature, error) {
	if len(signers) == 0 {
		return "", appErrors.NewSubmissionFailed("transaction has no fee payer", nil)
	}

	latest, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return "", appErrors.NewSubmissionFailed("fetching recent blockhash", fail("getLatestBlockhash", err))
	}
	if latest == nil || latest.Value == nil {
		return "", appErrors.NewSubmissionFailed("node returned no blockhash", nil)
	}

	tx, err := ledger.BuildTransaction(instructions, latest.Value.Blockhash, signers)
	if err != nil {
		return "", appErrors.NewSubmissionFailed("building transaction", err)
	}

	sent, err := c.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Data != nil {
			c.logger.Warn("Transaction rejected in preflight", zap.Any("data", rpcErr.Data))
		}
		return "", appErrors.NewSubmissionFailed("sending transaction", fail("sendTransaction", err))
	}

	sig := ledger.TransactionID(tx)
	if !sent.IsZero() && ledger.SignatureOf(sent) != sig {
		c.logger.Warn("Node returned an unexpected signature",
			zap.String("expected", sig.String()),
			zap.String("returned", sent.String()))
	}

	if err := c.awaitConfirmation(ctx, tx.Signatures[0]); err != nil {
		return "", err
	}
	return sig, nil
}

func (c *Client) awaitConfirmation(ctx context.Context, wire solana.Signature) error {
	if c.confirmWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.confirmWait)
		defer cancel()
	}
	sig := ledger.SignatureOf(wire)
	want := commitmentRank[string(c.commitment)]

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, wire)
		switch {
		case err != nil && ctx.Err() != nil:
			// The deadline error is reported below.
		case errors.Is(err, solanarpc.ErrNotFound):
		case err != nil:
			c.logger.Debug("Signature status poll failed", zap.String("signature", sig.String()), zap.Error(err))
		case len(statuses.Value) > 0 && statuses.Value[0] != nil:
			status := statuses.Value[0]
			if status.Err != nil {
				reason, _ := json.Marshal(status.Err)
				return appErrors.NewSubmissionFailed(
					fmt.Sprintf("transaction %s failed: %s", sig, reason), nil)
			}
			if commitmentRank[string(status.ConfirmationStatus)] >= want {
				c.logger.Info("Transaction confirmed",
					zap.String("signature", sig.String()),
					zap.Uint64("slot", status.Slot),
					zap.String("commitment", string(status.ConfirmationStatus)))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return appErrors.NewSubmissionFailed(
				fmt.Sprintf("transaction %s not confirmed", sig), ctx.Err())
		case <-ticker.C:
		}
	}
}

// getTransaction does not serve the processed level.
func (c *Client) readCommitment() solanarpc.CommitmentType {
	if c.commitment == solanarpc.CommitmentProcessed {
		return solanarpc.CommitmentConfirmed
	}
	return c.commitment
}

var _ ledger.Gateway = (*Client)(nil)
