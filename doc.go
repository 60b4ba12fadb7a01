/*
Package vault provides the primitives shared by all packages of the custodial
multisig vault: addresses and conditions for identity, POSIX time types for
lazy expiry evaluation, KV store interfaces for persisted state, and the
Persistent interface implemented by every fixed-size record.

The engine itself lives in the x/ packages. x/wallet owns the policy and
configuration model, x/multisig the approval state machine, x/dapp the staged
external-call protocol, and x/deposit the ledger used for storage deposits
and balance-account funds.
*/
package vault
