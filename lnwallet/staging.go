package lnwallet

import "fmt"

// StagingKind tags which of the three HTLC operations a HtlcStaging entry
// represents. It is the discriminant of the explicit sum type packets.c
// called `union htlc_staging`.
type StagingKind uint8

const (
	// StagingAdd stages a brand new HTLC.
	StagingAdd StagingKind = iota

	// StagingFulfill resolves a staged HTLC by revealing its preimage.
	StagingFulfill

	// StagingFail resolves a staged HTLC without payment.
	StagingFail
)

func (k StagingKind) String() string {
	switch k {
	case StagingAdd:
		return "add"
	case StagingFulfill:
		return "fulfill"
	case StagingFail:
		return "fail"
	default:
		return "unknown"
	}
}

// HtlcStaging is one operation recorded in a CommitInfo's UnackedChanges.
// Only the fields relevant to Kind are meaningful: Add uses AmountMsat,
// RHash and Expiry; Fulfill additionally uses Preimage; Fail uses only ID.
type HtlcStaging struct {
	Kind StagingKind
	ID   uint64

	AmountMsat MilliSatoshi
	RHash      [32]byte
	Expiry     uint32

	Preimage [32]byte
}

// AddStaging returns the HtlcStaging entry recording a newly staged HTLC.
func AddStaging(h *Htlc) HtlcStaging {
	return HtlcStaging{
		Kind:       StagingAdd,
		ID:         h.ID,
		AmountMsat: h.AmountMsat,
		RHash:      h.RHash,
		Expiry:     h.Expiry,
	}
}

// FulfillStaging returns the HtlcStaging entry recording a fulfilled HTLC.
func FulfillStaging(id uint64, preimage [32]byte) HtlcStaging {
	return HtlcStaging{Kind: StagingFulfill, ID: id, Preimage: preimage}
}

// FailStaging returns the HtlcStaging entry recording a failed HTLC.
func FailStaging(id uint64) HtlcStaging {
	return HtlcStaging{Kind: StagingFail, ID: id}
}

// ApplyChangeset replays changes against target, the staging snapshot being
// brought up to date. actingSide is whichever side originated every entry
// in changes -- a changeset is always homogeneous this way, since it is
// built from a single CommitInfo's worth of operations performed by one
// side between two commits.
//
// An Add is staged against actingSide directly: the HTLC's payer is
// whoever originated it. A Fulfill or Fail instead targets the HTLC
// originated by the *other* party, since a side only ever resolves an HTLC
// it did not create itself.
//
// Any failure here -- a duplicate id on add, a missing id on fulfill or
// fail -- means the two sides' books have diverged, which is a fatal
// protocol violation, not a recoverable one; the caller is expected to
// treat a non-nil error as such.
func ApplyChangeset(target *ChannelState, actingSide ChannelSide, changes []HtlcStaging) error {
	other := Theirs
	if actingSide == Theirs {
		other = Ours
	}

	for _, c := range changes {
		switch c.Kind {
		case StagingAdd:
			if target.HtlcByID(actingSide, c.ID) != nil {
				return fmt.Errorf("replay: duplicate htlc id %d on add", c.ID)
			}
			if err := target.AddHtlc(actingSide, c.ID, c.AmountMsat, c.RHash, c.Expiry); err != nil {
				return fmt.Errorf("replay: add htlc %d: %w", c.ID, err)
			}
		case StagingFulfill:
			if target.HtlcByID(other, c.ID) == nil {
				return fmt.Errorf("replay: no htlc %d to fulfill", c.ID)
			}
			if err := target.FulfillHtlc(other, c.ID, c.Preimage); err != nil {
				return fmt.Errorf("replay: fulfill htlc %d: %w", c.ID, err)
			}
		case StagingFail:
			if target.HtlcByID(other, c.ID) == nil {
				return fmt.Errorf("replay: no htlc %d to fail", c.ID)
			}
			if err := target.FailHtlc(other, c.ID); err != nil {
				return fmt.Errorf("replay: fail htlc %d: %w", c.ID, err)
			}
		default:
			return fmt.Errorf("replay: unknown staging kind %d", c.Kind)
		}
	}
	return nil
}
