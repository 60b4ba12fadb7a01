/*
Package multisig implements the approval state machine that gates every
sensitive wallet action.

An Op is proposed with a snapshot of the approver set and the required
approval count. Approvers record dispositions against the exact parameter
fingerprint they reviewed; once enough approvals (or too many denials)
accumulate the outcome is final. Expiry is evaluated lazily against a
caller-supplied clock and never overrides a final outcome. Finalizing runs
the gated effect at most once and reclaims the record's storage deposit
exactly once on every path.
*/
package multisig
