package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/store"
	"github.com/custodix/vault/x/deposit"
	"github.com/custodix/vault/x/multisig"
)

type fixture struct {
	db     vault.CacheableKVStore
	ledger deposit.Ledger
	h      Handler
}

func setup(t *testing.T, signers ...string) *fixture {
	t.Helper()
	f := &fixture{
		db:     store.MemStore(),
		ledger: deposit.NewLedger(),
	}
	f.h = NewHandler(f.ledger)
	w := testWallet(t, signers...)
	require.NoError(t, f.h.InitWallet(f.db, w))
	require.NoError(t, f.ledger.Credit(f.db, addr("assistant"), 10_000))
	require.NoError(t, f.ledger.Credit(f.db, addr("alice"), 1_000))
	return f
}

func (f *fixture) approve(t *testing.T, id multisig.OpID, params multisig.Params, now vault.UnixTime, voters ...string) {
	t.Helper()
	for _, v := range voters {
		require.NoError(t, f.h.Vote(f.db, id, addr(v),
			multisig.DispositionApproved, params.Fingerprint(), now))
	}
}

func TestInitWalletOnlyOnce(t *testing.T) {
	f := setup(t, "alice", "bob")

	w := testWallet(t, "alice", "bob")
	err := f.h.InitWallet(f.db, w)
	assert.True(t, errors.ErrDuplicate.Is(err))
}

func TestConfigPolicyUpdateFlow(t *testing.T) {
	f := setup(t, "alice", "bob", "carol")
	u := ConfigPolicyUpdate{
		Required:        1,
		Timeout:         900,
		RemoveApprovers: []vault.Address{addr("carol")},
	}

	id, err := f.h.ProposeConfigPolicyUpdate(f.db, addr("assistant"), u, 100, 10)
	require.NoError(t, err)

	// the config domain is locked while the proposal is open
	_, err = f.h.ProposeConfigPolicyUpdate(f.db, addr("assistant"), u, 110, 10)
	assert.True(t, errors.ErrLocked.Is(err))

	f.approve(t, id, u, 120, "alice", "bob")
	outcome, err := f.h.FinalizeConfigPolicyUpdate(f.db, id, u, 130)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), w.Config.Required)
	assert.Equal(t, vault.UnixDuration(900), w.Config.Timeout)
	assert.Equal(t, 2, w.Config.Approvers.Count())
	assert.False(t, w.Config.Locked, "lock released with the operation")

	// deposit came back to the initiator
	bal, err := f.ledger.Balance(f.db, addr("assistant"))
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), bal)
}

func TestConfigPolicyDeniedStillUnlocks(t *testing.T) {
	f := setup(t, "alice", "bob", "carol")
	u := ConfigPolicyUpdate{Required: 3, Timeout: 600}

	// legal now (3 approvers), so the proposal is accepted
	id, err := f.h.ProposeConfigPolicyUpdate(f.db, addr("assistant"), u, 100, 10)
	require.NoError(t, err)

	for _, v := range []string{"alice", "bob"} {
		require.NoError(t, f.h.Vote(f.db, id, addr(v),
			multisig.DispositionDenied, u.Fingerprint(), 110))
	}
	outcome, err := f.h.FinalizeConfigPolicyUpdate(f.db, id, u, 120)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionDenied, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), w.Config.Required, "denied update never applied")
	assert.False(t, w.Config.Locked)

	// the domain is open for the next proposal
	_, err = f.h.ProposeConfigPolicyUpdate(f.db, addr("assistant"),
		ConfigPolicyUpdate{Required: 1, Timeout: 600}, 130, 10)
	require.NoError(t, err)
}

func TestFailedConfigProposalDoesNotStrandLock(t *testing.T) {
	f := setup(t, "alice", "bob")
	u := ConfigPolicyUpdate{Required: 1, Timeout: 600}

	// bob holds no ledger balance, so funding the deposit fails after the
	// lock was taken in memory
	_, err := f.h.ProposeConfigPolicyUpdate(f.db, addr("bob"), u, 100, 10)
	assert.True(t, errors.ErrAmount.Is(err))

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	assert.False(t, w.Config.Locked, "failed proposal leaves no lock behind")

	// the domain stays open for a funded initiator
	_, err = f.h.ProposeConfigPolicyUpdate(f.db, addr("alice"), u, 110, 10)
	require.NoError(t, err)
}

func TestFailedAccountProposalDoesNotStrandLock(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	u := AccountPolicyUpdate{
		GUIDHash:     hash("acct-1"),
		Required:     1,
		Timeout:      600,
		AddApprovers: []vault.Address{addr("bob")},
	}

	_, err := f.h.ProposeAccountPolicyUpdate(f.db, addr("bob"), u, 100, 10)
	assert.True(t, errors.ErrAmount.Is(err))

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	acct, err := w.Account(hash("acct-1"))
	require.NoError(t, err)
	assert.False(t, acct.Policy.Locked, "failed proposal leaves no lock behind")

	_, err = f.h.ProposeAccountPolicyUpdate(f.db, addr("alice"), u, 110, 10)
	require.NoError(t, err)
}

func TestProposeRejectsOutsider(t *testing.T) {
	f := setup(t, "alice", "bob")

	_, err := f.h.ProposeSignersUpdate(f.db, addr("mallory"),
		SignersUpdate{Add: []vault.Address{addr("dave")}}, 100, 0)
	assert.True(t, errors.ErrUnauthorized.Is(err))
}

func TestProposeRejectsIllegalUpdate(t *testing.T) {
	f := setup(t, "alice", "bob")

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	before, err := w.Marshal()
	require.NoError(t, err)

	// dropping bob leaves 1 approver for a 2-of-n policy
	_, err = f.h.ProposeSignersUpdate(f.db, addr("assistant"),
		SignersUpdate{Remove: []vault.Address{addr("bob")}}, 100, 0)
	assert.True(t, errors.ErrInput.Is(err), "pre-flight rejects updates that can never apply")

	w, err = f.h.Wallet(f.db)
	require.NoError(t, err)
	after, err := w.Marshal()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSignersUpdateFlow(t *testing.T) {
	f := setup(t, "alice", "bob")
	u := SignersUpdate{Add: []vault.Address{addr("dave")}}

	id, err := f.h.ProposeSignersUpdate(f.db, addr("alice"), u, 100, 10)
	require.NoError(t, err)
	f.approve(t, id, u, 110, "alice", "bob")

	outcome, err := f.h.FinalizeSignersUpdate(f.db, id, u, 120)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Signers.Live())
	_, ok := w.Signers.FindSlot(addr("dave"))
	assert.True(t, ok)
}

func TestBookUpdatesHaveDistinctFingerprints(t *testing.T) {
	u := BookUpdate{Add: []vault.Address{addr("target")}}
	assert.NotEqual(t,
		addressBookUpdate{u}.Fingerprint(),
		dappBookUpdate{u}.Fingerprint(),
		"same delta against different books must not share a fingerprint")
}

func TestCreateAccountFlow(t *testing.T) {
	f := setup(t, "alice", "bob")
	u := CreateAccountParams{
		GUIDHash:  hash("acct-1"),
		NameHash:  hash("acct-1-name"),
		Required:  1,
		Timeout:   600,
		Approvers: []vault.Address{addr("alice")},
	}

	id, err := f.h.ProposeCreateAccount(f.db, addr("assistant"), u, 100, 10)
	require.NoError(t, err)
	f.approve(t, id, u, 110, "alice", "bob")
	outcome, err := f.h.FinalizeCreateAccount(f.db, id, u, 120)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	acct, err := w.Account(hash("acct-1"))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), acct.Policy.Required)
}

func TestAccountPolicyUpdateLocksPerAccount(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	createAccountDirect(t, f, "acct-2", "alice")

	u1 := AccountPolicyUpdate{
		GUIDHash:     hash("acct-1"),
		Required:     1,
		Timeout:      600,
		AddApprovers: []vault.Address{addr("bob")},
	}
	id, err := f.h.ProposeAccountPolicyUpdate(f.db, addr("assistant"), u1, 100, 10)
	require.NoError(t, err)

	// the same account is locked, a sibling account is not
	_, err = f.h.ProposeAccountPolicyUpdate(f.db, addr("assistant"), u1, 110, 10)
	assert.True(t, errors.ErrLocked.Is(err))
	u2 := u1
	u2.GUIDHash = hash("acct-2")
	id2, err := f.h.ProposeAccountPolicyUpdate(f.db, addr("assistant"), u2, 110, 10)
	require.NoError(t, err)

	f.approve(t, id, u1, 120, "alice", "bob")
	outcome, err := f.h.FinalizeAccountPolicyUpdate(f.db, id, u1, 130)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	acct, err := w.Account(hash("acct-1"))
	require.NoError(t, err)
	assert.False(t, acct.Policy.Locked)
	assert.Equal(t, 2, acct.Policy.Approvers.Count())
	acct2, err := w.Account(hash("acct-2"))
	require.NoError(t, err)
	assert.True(t, acct2.Policy.Locked, "sibling proposal still open")

	f.approve(t, id2, u2, 140, "alice", "bob")
	_, err = f.h.FinalizeAccountPolicyUpdate(f.db, id2, u2, 150)
	require.NoError(t, err)
}

func TestTransferFlow(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	require.NoError(t, f.ledger.Credit(f.db, AccountAddress(hash("acct-1")), 1_000))

	u := TransferParams{
		GUIDHash:    hash("acct-1"),
		Destination: addr("exchange"),
		Amount:      400,
	}
	id, err := f.h.ProposeTransfer(f.db, addr("alice"), u, 100, 10)
	require.NoError(t, err)
	f.approve(t, id, u, 110, "alice")

	outcome, err := f.h.FinalizeTransfer(f.db, id, u, 120)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	bal, err := f.ledger.Balance(f.db, AccountAddress(hash("acct-1")))
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal)
	bal, err = f.ledger.Balance(f.db, addr("exchange"))
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bal)

	// a second finalize finds no record and moves nothing
	_, err = f.h.FinalizeTransfer(f.db, id, u, 130)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestTransferWhitelistRecheckedAtFinalize(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	require.NoError(t, f.ledger.Credit(f.db, AccountAddress(hash("acct-1")), 1_000))

	dest := addr("exchange")
	applyDirect(t, f, func(w *Wallet) error {
		if err := w.ApplyAddressBookUpdate(BookUpdate{Add: []vault.Address{dest}}); err != nil {
			return err
		}
		return w.ApplyAccountSettingsUpdate(AccountSettingsUpdate{
			GUIDHash:        hash("acct-1"),
			Whitelist:       ToggleOn,
			AddDestinations: []vault.Address{dest},
		})
	})

	u := TransferParams{GUIDHash: hash("acct-1"), Destination: dest, Amount: 400}
	id, err := f.h.ProposeTransfer(f.db, addr("alice"), u, 100, 10)
	require.NoError(t, err)
	f.approve(t, id, u, 110, "alice")

	// destination drops off the whitelist while the vote was open
	applyDirect(t, f, func(w *Wallet) error {
		return w.ApplyAddressBookUpdate(BookUpdate{Remove: []vault.Address{dest}})
	})

	_, err = f.h.FinalizeTransfer(f.db, id, u, 120)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	// nothing moved, the record survives for a later finalize
	bal, err := f.ledger.Balance(f.db, AccountAddress(hash("acct-1")))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), bal)
	_, err = f.h.Op(f.db, id)
	require.NoError(t, err)
}

func TestTransferRejectsNonWhitelistedAtPropose(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	applyDirect(t, f, func(w *Wallet) error {
		return w.ApplyAccountSettingsUpdate(AccountSettingsUpdate{
			GUIDHash:  hash("acct-1"),
			Whitelist: ToggleOn,
		})
	})

	_, err := f.h.ProposeTransfer(f.db, addr("alice"),
		TransferParams{GUIDHash: hash("acct-1"), Destination: addr("anyone"), Amount: 5},
		100, 0)
	assert.True(t, errors.ErrUnauthorized.Is(err))
}

func TestAccountSettingsUpdateFlow(t *testing.T) {
	f := setup(t, "alice", "bob")
	createAccountDirect(t, f, "acct-1", "alice")
	dest := addr("exchange")
	applyDirect(t, f, func(w *Wallet) error {
		return w.ApplyAddressBookUpdate(BookUpdate{Add: []vault.Address{dest}})
	})

	u := AccountSettingsUpdate{
		GUIDHash:        hash("acct-1"),
		Whitelist:       ToggleOn,
		DApps:           ToggleOn,
		AddDestinations: []vault.Address{dest},
	}
	id, err := f.h.ProposeAccountSettingsUpdate(f.db, addr("assistant"), u, 100, 10)
	require.NoError(t, err)
	f.approve(t, id, u, 110, "alice", "bob")
	outcome, err := f.h.FinalizeAccountSettingsUpdate(f.db, id, u, 120)
	require.NoError(t, err)
	assert.Equal(t, multisig.DispositionApproved, outcome)

	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	acct, err := w.Account(hash("acct-1"))
	require.NoError(t, err)
	assert.True(t, acct.WhitelistEnabled)
	assert.True(t, acct.DAppsEnabled)
	assert.Equal(t, 1, acct.AllowedDestinations.Count())
}

// createAccountDirect applies the account creation straight to storage,
// keeping handler tests focused on the flow under test.
func createAccountDirect(t *testing.T, f *fixture, guid string, approvers ...string) {
	t.Helper()
	applyDirect(t, f, func(w *Wallet) error {
		addrs := make([]vault.Address, len(approvers))
		for i, s := range approvers {
			addrs[i] = addr(s)
		}
		return w.AddBalanceAccount(CreateAccountParams{
			GUIDHash:  hash(guid),
			NameHash:  hash(guid + "-name"),
			Required:  1,
			Timeout:   600,
			Approvers: addrs,
		})
	})
}

func applyDirect(t *testing.T, f *fixture, fn func(*Wallet) error) {
	t.Helper()
	w, err := f.h.Wallet(f.db)
	require.NoError(t, err)
	require.NoError(t, fn(w))
	require.NoError(t, f.h.wallets.Save(f.db, w))
}
