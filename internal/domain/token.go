package domain

// TokenAccount holds a balance of one mint on behalf of an owner.
// Vault accounts are owned by their pool address.
type TokenAccount struct {
	Address string
	Mint    string
	Owner   string
	Amount  uint64
}

// Clone returns a copy safe to mutate.
func (a *TokenAccount) Clone() *TokenAccount {
	c := *a
	return &c
}

// Transfer is a request to move Amount from one token account to another.
// Authority must be the owner of From: the principal for deposits, the pool
// for payouts out of a vault.
type Transfer struct {
	From      string
	To        string
	Authority string
	Amount    uint64
}
