/*
Package dapp implements the staged external-call protocol.

An external call whose payload is too large to submit atomically with its
proposal is staged: Begin creates the staging record together with a
multisig operation proposed against a placeholder commitment, Supply fills
the declared instruction slots write-once and in any index order, and once
the record is complete its structural hash replaces the placeholder as the
fingerprint that votes and finalize bind to. Simulate dry-runs the calls on
a store cache wrap and reports balance deltas while discarding all side
effects; Finalize executes the approved calls exactly once.
*/
package dapp
