/*
Package wallet implements the custodial wallet configuration model and the
proposal handlers built on top of the multisig operation engine.

A wallet holds the signer registry, the wallet-wide approval policy, the
whitelisted destination and dapp target books, and up to MaxAccounts managed
balance accounts. All configuration changes and transfers go through a
propose/finalize pair: a proposal snapshots the relevant approver set into a
multisig operation, and the finalize step applies the change only when the
vote came out approved. Updates are validated against a throwaway copy
before a proposal is created, so operations that can never legally complete
are rejected up front.
*/
package wallet
