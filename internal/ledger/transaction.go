package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BuildTransaction compiles instructions into a legacy transaction whose fee
// payer is signers[0], and signs it. Keypairs that are not required are
// ignored; a missing required signer is an error.
func BuildTransaction(instructions []Instruction, recentBlockhash Hash, signers []Keypair) (*solana.Transaction, error) {
	if len(signers) == 0 || signers[0].IsZero() {
		return nil, errors.New("transaction has no fee payer")
	}

	tx, err := solana.NewTransaction(instructions, recentBlockhash, solana.TransactionPayer(signers[0].PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("compiling transaction: %w", err)
	}

	keys := make(map[PublicKey]solana.PrivateKey, len(signers))
	for _, kp := range signers {
		if !kp.IsZero() {
			keys[kp.PublicKey()] = kp.PrivateKey()
		}
	}
	_, err = tx.Sign(func(key PublicKey) *solana.PrivateKey {
		if priv, ok := keys[key]; ok {
			return &priv
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return tx, nil
}

// TransactionID returns the id of a signed transaction: the fee payer's
// signature.
func TransactionID(tx *solana.Transaction) Signature {
	if tx == nil || len(tx.Signatures) == 0 {
		return ""
	}
	return SignatureOf(tx.Signatures[0])
}
