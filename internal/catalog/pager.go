package catalog

import (
	"context"

	"lpp-backend/internal/ledger"
)

// signaturePager walks an address's signature history newest first, one page
// per ListSignatures call, fetching the next page only when the current one
// is used up. An empty page ends the walk; so does a listing error, which is
// kept for Err.
type signaturePager struct {
	reader  ledger.Reader
	address ledger.PublicKey
	limit   int

	page   []ledger.SignatureInfo
	pos    int
	before ledger.Signature
	done   bool
	err    error
	calls  int
}

func newSignaturePager(reader ledger.Reader, address ledger.PublicKey, limit int) *signaturePager {
	if limit <= 0 || limit > ledger.MaxSignaturePageSize {
		limit = ledger.MaxSignaturePageSize
	}
	return &signaturePager{reader: reader, address: address, limit: limit}
}

// Next returns the next signature, or false when the history is exhausted or
// listing failed.
func (p *signaturePager) Next(ctx context.Context) (ledger.Signature, bool) {
	for p.pos >= len(p.page) {
		if p.done {
			return "", false
		}
		p.fetch(ctx)
	}
	info := p.page[p.pos]
	p.pos++
	return info.Signature, true
}

func (p *signaturePager) fetch(ctx context.Context) {
	p.calls++
	page, err := p.reader.ListSignatures(ctx, p.address, ledger.ListOptions{
		Before: p.before,
		Limit:  p.limit,
	})
	if err != nil {
		p.err = err
		p.done = true
		return
	}
	if len(page) == 0 {
		p.done = true
		return
	}
	p.page = page
	p.pos = 0
	p.before = page[len(page)-1].Signature
}

// Err returns the listing error that ended the walk, if any.
func (p *signaturePager) Err() error {
	return p.err
}

// Calls returns the number of listing calls made.
func (p *signaturePager) Calls() int {
	return p.calls
}
