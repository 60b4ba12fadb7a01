package multisig

import (
	"bytes"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
)

// MaxApprovers bounds the approver snapshot of a single operation. It
// matches the signer registry capacity, as every approver is a signer.
const MaxApprovers = 24

// Disposition is a vote, or the derived outcome of a whole operation.
type Disposition byte

const (
	DispositionNone Disposition = iota
	DispositionApproved
	DispositionDenied
	DispositionExpired
)

func (d Disposition) String() string {
	switch d {
	case DispositionNone:
		return "none"
	case DispositionApproved:
		return "approved"
	case DispositionDenied:
		return "denied"
	case DispositionExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Final returns true once a disposition can no longer change.
func (d Disposition) Final() bool {
	return d == DispositionApproved || d == DispositionDenied
}

// Params is any action payload that an operation can gate. The fingerprint
// must be a sha256 digest over a type tag and the canonical fixed encoding
// of the parameters, so that votes and finalize bind to the exact proposal.
type Params interface {
	Fingerprint() []byte
}

// Op is one proposed action collecting approver dispositions.
//
// Approvers is the snapshot taken at proposal time. Later signer registry
// changes do not change who may vote on an already proposed operation.
// Votes is parallel to Approvers and holds each approver's own disposition.
type Op struct {
	Approvers   []vault.Address
	Votes       []Disposition
	Required    uint8
	StartedAt   vault.UnixTime
	ExpiresAt   vault.UnixTime
	Fingerprint []byte
	Initiator   vault.Address
	RentReturn  vault.Address
}

var _ orm.Model = (*Op)(nil)

// NewOp proposes an operation. The expiry is computed from the supplied
// clock reading and timeout; an overflowing addition is an error, never a
// silent wrap.
func NewOp(
	approvers []vault.Address,
	required uint8,
	now vault.UnixTime,
	timeout vault.UnixDuration,
	params Params,
	initiator vault.Address,
	rentReturn vault.Address,
) (*Op, error) {
	if required == 0 {
		return nil, errors.Wrap(errors.ErrInput, "zero approvals required")
	}
	if timeout <= 0 {
		return nil, errors.Wrap(errors.ErrInput, "non-positive timeout")
	}
	expires := now + vault.UnixTime(timeout)
	if expires < now {
		return nil, errors.Wrap(errors.ErrOverflow, "expiration time")
	}
	snapshot := make([]vault.Address, len(approvers))
	for i, a := range approvers {
		snapshot[i] = a.Clone()
	}
	op := &Op{
		Approvers:   snapshot,
		Votes:       make([]Disposition, len(approvers)),
		Required:    required,
		StartedAt:   now,
		ExpiresAt:   expires,
		Fingerprint: params.Fingerprint(),
		Initiator:   initiator.Clone(),
		RentReturn:  rentReturn.Clone(),
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}

// Validate returns an error if the operation is not in a persistable state.
func (o *Op) Validate() error {
	if len(o.Approvers) == 0 {
		return errors.Wrap(errors.ErrEmpty, "approvers")
	}
	if len(o.Approvers) > MaxApprovers {
		return errors.Wrapf(errors.ErrCapacity,
			"%d approvers, at most %d", len(o.Approvers), MaxApprovers)
	}
	if len(o.Votes) != len(o.Approvers) {
		return errors.Wrap(errors.ErrModel, "votes not parallel to approvers")
	}
	for i, a := range o.Approvers {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "approver %d", i)
		}
		if o.Votes[i] > DispositionDenied {
			return errors.Wrapf(errors.ErrModel, "approver %d vote %d", i, o.Votes[i])
		}
	}
	if o.Required == 0 || int(o.Required) > len(o.Approvers) {
		return errors.Wrapf(errors.ErrModel,
			"%d approvals required of %d approvers", o.Required, len(o.Approvers))
	}
	if len(o.Fingerprint) != fingerprintLength {
		return errors.Wrapf(errors.ErrModel,
			"fingerprint is %d bytes", len(o.Fingerprint))
	}
	if err := o.StartedAt.Validate(); err != nil {
		return errors.Wrap(err, "started at")
	}
	if o.ExpiresAt < o.StartedAt {
		return errors.Wrap(errors.ErrModel, "expires before start")
	}
	if err := o.Initiator.Validate(); err != nil {
		return errors.Wrap(err, "initiator")
	}
	if err := o.RentReturn.Validate(); err != nil {
		return errors.Wrap(err, "rent return")
	}
	return nil
}

// RecordDisposition stores one approver's vote. The caller must present the
// current parameter fingerprint; a mismatch means the vote was cast against
// a stale view of the proposal and is rejected. An approver may re-record,
// overwriting only their own previous vote, as long as the operation is not
// final or expired.
func (o *Op) RecordDisposition(
	approver vault.Address,
	vote Disposition,
	fingerprint []byte,
	now vault.UnixTime,
) error {
	if vote != DispositionApproved && vote != DispositionDenied {
		return errors.Wrapf(errors.ErrInput, "cannot record %s vote", vote)
	}
	if !bytes.Equal(fingerprint, o.Fingerprint) {
		return errors.Wrap(errors.ErrStale, "parameter fingerprint mismatch")
	}
	switch d := o.DispositionAt(now); {
	case d == DispositionExpired:
		return errors.Wrap(errors.ErrExpired, "operation expired")
	case d.Final():
		return errors.Wrapf(errors.ErrState, "operation already %s", d)
	}
	idx := -1
	for i, a := range o.Approvers {
		if a.Equals(approver) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not an approver", approver)
	}
	o.Votes[idx] = vote
	return nil
}

// Rebind replaces the parameter fingerprint and clears every recorded
// vote. A disposition binds to the exact parameters it was cast against;
// when the parameters an operation gates are finalized late (a staged
// payload completing), earlier votes must not carry over to content their
// approvers never saw.
func (o *Op) Rebind(fingerprint []byte) error {
	if len(fingerprint) != fingerprintLength {
		return errors.Wrapf(errors.ErrInput,
			"fingerprint is %d bytes", len(fingerprint))
	}
	o.Fingerprint = append([]byte(nil), fingerprint...)
	o.Votes = make([]Disposition, len(o.Approvers))
	return nil
}

// DispositionAt derives the operation outcome for the given clock reading.
// A final outcome is independent of the clock; expiry applies only while
// the vote is still open.
func (o *Op) DispositionAt(now vault.UnixTime) Disposition {
	var approvals, denials int
	for _, v := range o.Votes {
		switch v {
		case DispositionApproved:
			approvals++
		case DispositionDenied:
			denials++
		}
	}
	switch {
	case approvals >= int(o.Required):
		return DispositionApproved
	case denials > len(o.Approvers)-int(o.Required):
		// enough denials that the required approval count is unreachable
		return DispositionDenied
	case now > o.ExpiresAt:
		return DispositionExpired
	default:
		return DispositionNone
	}
}

// Approved reports whether the gated effect may execute. The caller must
// supply the exact original parameters; any other payload fails with a
// stale fingerprint error. A still-open vote is reported as not ready so
// that a pending operation cannot be reclaimed out from under its
// approvers. Denied and expired operations return false without error,
// signaling the caller to skip the effect but still reclaim storage.
func (o *Op) Approved(params Params, now vault.UnixTime) (bool, error) {
	if !bytes.Equal(params.Fingerprint(), o.Fingerprint) {
		return false, errors.Wrap(errors.ErrStale, "parameter fingerprint mismatch")
	}
	switch o.DispositionAt(now) {
	case DispositionApproved:
		return true, nil
	case DispositionNone:
		return false, errors.Wrap(errors.ErrNotReady, "operation still open")
	default:
		return false, nil
	}
}
