package codec

import "main/internal/schema"

func addContract(b *Builder, c schema.ContractSpec) {
	b.AddString(c.Symbol)
	b.AddString(c.SecurityType)
	b.AddString(c.Exchange)
	b.AddString(c.Currency)
	b.AddString(c.Expiry)
	b.AddFloat(c.Strike)
	b.AddString(c.Right)
	b.AddInt(int64(c.Multiplier))
}

func readContract(r *Reader) schema.ContractSpec {
	return schema.ContractSpec{
		Symbol:       r.String(),
		SecurityType: r.String(),
		Exchange:     r.String(),
		Currency:     r.String(),
		Expiry:       r.String(),
		Strike:       r.Float(),
		Right:        r.String(),
		Multiplier:   int(r.Int()),
	}
}
