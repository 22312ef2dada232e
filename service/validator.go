package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Rejection reasons shown to voters.
const (
	ReasonSessionVoted  = "already voted for this chili"
	ReasonDeviceVoted   = "this device has already voted for this chili"
	ReasonNetworkRecent = "multiple votes detected from this network, please wait a few minutes"
)

// Check names, reported in decisions and logs.
const (
	CheckSession     = "session"
	CheckFingerprint = "fingerprint"
	CheckIP          = "ip"
)

// VoteLookup answers the duplicate-detection queries.
type VoteLookup interface {
	ExistsBySession(ctx context.Context, entryID, sessionID string) (bool, error)
	ExistsByFingerprint(ctx context.Context, entryID, fingerprint string) (bool, error)
	ExistsByIPSince(ctx context.Context, entryID, ip string, since time.Time) (bool, error)
}

// Candidate is the identity bundle of a submission and the entry it targets.
type Candidate struct {
	EntryID           string
	SessionID         string
	DeviceFingerprint string
	IPAddress         string
}

// Decision is the validator's verdict. Check names the rule that rejected.
type Decision struct {
	Accepted bool
	Reason   string
	Check    string
}

// ValidatorConfig tunes the validator.
type ValidatorConfig struct {
	// FailOpen lets a vote pass a check whose lookup failed.
	FailOpen bool
	// IPWindow bounds the network check to recent votes.
	IPWindow time.Duration
}

type rule struct {
	name    string
	reason  string
	applies func(Candidate) bool
	exists  func(context.Context, Candidate) (bool, error)
}

// Validator applies the duplicate-vote rules in order and stops at the first match.
type Validator struct {
	rules    []rule
	failOpen bool
	log      *slog.Logger
}

// NewValidator builds the rule chain: session, then fingerprint, then recent IP.
func NewValidator(votes VoteLookup, cfg ValidatorConfig, log *slog.Logger) *Validator {
	return newValidator(votes, cfg, time.Now, log)
}

func newValidator(votes VoteLookup, cfg ValidatorConfig, now func() time.Time, log *slog.Logger) *Validator {
	window := cfg.IPWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	rules := []rule{
		{
			name:    CheckSession,
			reason:  ReasonSessionVoted,
			applies: func(c Candidate) bool { return c.SessionID != "" },
			exists: func(ctx context.Context, c Candidate) (bool, error) {
				return votes.ExistsBySession(ctx, c.EntryID, c.SessionID)
			},
		},
		{
			name:    CheckFingerprint,
			reason:  ReasonDeviceVoted,
			applies: func(c Candidate) bool { return c.DeviceFingerprint != "" },
			exists: func(ctx context.Context, c Candidate) (bool, error) {
				return votes.ExistsByFingerprint(ctx, c.EntryID, c.DeviceFingerprint)
			},
		},
		{
			name:    CheckIP,
			reason:  ReasonNetworkRecent,
			applies: func(c Candidate) bool { return c.IPAddress != "" },
			exists: func(ctx context.Context, c Candidate) (bool, error) {
				return votes.ExistsByIPSince(ctx, c.EntryID, c.IPAddress, now().Add(-window))
			},
		},
	}

	return &Validator{rules: rules, failOpen: cfg.FailOpen, log: log}
}

// Validate decides whether c may vote. A non-nil error is returned only when a
// lookup failed and the validator is configured to fail closed.
func (v *Validator) Validate(ctx context.Context, c Candidate) (Decision, error) {
	for _, r := range v.rules {
		if !r.applies(c) {
			continue
		}

		found, err := r.exists(ctx, c)
		if err != nil {
			if v.failOpen {
				v.log.Warn("duplicate check failed, allowing vote",
					"check", r.name, "entry_id", c.EntryID, "error", err)
				continue
			}
			return Decision{}, fmt.Errorf("%w: %s check: %v", ErrValidationUnavailable, r.name, err)
		}

		if found {
			return Decision{Accepted: false, Reason: r.reason, Check: r.name}, nil
		}
	}

	return Decision{Accepted: true}, nil
}
