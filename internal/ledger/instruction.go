package ledger

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Instruction is a single program invocation inside a transaction.
type Instruction = solana.Instruction

// AccountMeta describes one account an instruction touches.
type AccountMeta = solana.AccountMeta

// CreateAccount builds the system program instruction that funds and
// allocates a new account of space bytes owned by owner.
func CreateAccount(from, newAccount PublicKey, lamports, space uint64, owner PublicKey) Instruction {
	return system.NewCreateAccountInstruction(lamports, space, owner, from, newAccount).Build()
}

// StoreRecord builds the archive program instruction that writes data into
// account. payer signs it.
func StoreRecord(program, account, payer PublicKey, data []byte) Instruction {
	return solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
		solana.Meta(payer).SIGNER(),
	}, data)
}

// CreateAccountParams is the decoded form of a CreateAccount instruction.
type CreateAccountParams struct {
	Lamports uint64
	Space    uint64
	Owner    PublicKey
}

// DecodeCreateAccount parses system program instruction data. ok is false when
// data is not a complete CreateAccount instruction.
func DecodeCreateAccount(accounts []*AccountMeta, data []byte) (params CreateAccountParams, ok bool) {
	inst, err := system.DecodeInstruction(accounts, data)
	if err != nil {
		return params, false
	}
	create, isCreate := inst.Impl.(*system.CreateAccount)
	if !isCreate || create.Lamports == nil || create.Space == nil || create.Owner == nil {
		return params, false
	}
	return CreateAccountParams{
		Lamports: *create.Lamports,
		Space:    *create.Space,
		Owner:    *create.Owner,
	}, true
}
