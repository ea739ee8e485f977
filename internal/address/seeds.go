package address

import "fmt"

// Seed prefixes of the staking program accounts.
const (
	SeedStakingPool  = "staking_pool"
	SeedStakingVault = "staking_vault"
	SeedRewardVault  = "reward_vault"
	SeedUserStake    = "user_stake_account"
	SeedTokenAccount = "token_account"
)

// Derived is a program address together with the bump that produced it.
type Derived struct {
	Address Pubkey
	Bump    uint8
}

// String returns the base58 address.
func (d Derived) String() string {
	return d.Address.String()
}

// Deriver computes the addresses of every ledger record under one program.
type Deriver struct {
	program Pubkey
}

// NewDeriver creates a Deriver for the given base58 program id.
func NewDeriver(programID string) (*Deriver, error) {
	program, err := Parse(programID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	return &Deriver{program: program}, nil
}

// Program returns the program id addresses are derived under.
func (d *Deriver) Program() Pubkey {
	return d.program
}

// Pool derives the pool address from its creator and the two asset mints.
func (d *Deriver) Pool(authority, stakingMint, rewardMint Pubkey) (Derived, error) {
	return d.find([]byte(SeedStakingPool), authority[:], stakingMint[:], rewardMint[:])
}

// StakingVault derives the vault that holds staked principal.
func (d *Deriver) StakingVault(pool Pubkey) (Derived, error) {
	return d.find([]byte(SeedStakingVault), pool[:])
}

// RewardVault derives the vault rewards are paid from.
func (d *Deriver) RewardVault(pool Pubkey) (Derived, error) {
	return d.find([]byte(SeedRewardVault), pool[:])
}

// UserStake derives the stake record of owner in pool.
func (d *Deriver) UserStake(pool, owner Pubkey) (Derived, error) {
	return d.find([]byte(SeedUserStake), pool[:], owner[:])
}

// TokenAccount derives the token account owner holds for mint.
func (d *Deriver) TokenAccount(owner, mint Pubkey) (Derived, error) {
	return d.find([]byte(SeedTokenAccount), owner[:], mint[:])
}

func (d *Deriver) find(seeds ...[]byte) (Derived, error) {
	pk, bump, err := FindProgramAddress(seeds, d.program)
	if err != nil {
		return Derived{}, err
	}
	return Derived{Address: pk, Bump: bump}, nil
}
