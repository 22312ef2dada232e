package service

import (
	"context"
	"testing"
	"time"

	"chili-cookoff-backend/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	session, fingerprint, ip          bool
	sessionErr, fingerprintErr, ipErr error
	calls                             []string
	since                             time.Time
}

func (f *fakeLookup) ExistsBySession(context.Context, string, string) (bool, error) {
	f.calls = append(f.calls, CheckSession)
	return f.session, f.sessionErr
}

func (f *fakeLookup) ExistsByFingerprint(context.Context, string, string) (bool, error) {
	f.calls = append(f.calls, CheckFingerprint)
	return f.fingerprint, f.fingerprintErr
}

func (f *fakeLookup) ExistsByIPSince(_ context.Context, _, _ string, since time.Time) (bool, error) {
	f.calls = append(f.calls, CheckIP)
	f.since = since
	return f.ip, f.ipErr
}

func fullCandidate() Candidate {
	return Candidate{EntryID: "e1", SessionID: "s1", DeviceFingerprint: "f1", IPAddress: "ip1"}
}

func TestValidator_Order(t *testing.T) {
	tests := []struct {
		name      string
		lookup    fakeLookup
		wantCheck string
		wantCalls []string
	}{
		{
			name:      "accepts when nothing matches",
			wantCalls: []string{CheckSession, CheckFingerprint, CheckIP},
		},
		{
			name:      "session wins over everything",
			lookup:    fakeLookup{session: true, fingerprint: true, ip: true},
			wantCheck: CheckSession,
			wantCalls: []string{CheckSession},
		},
		{
			name:      "fingerprint before ip",
			lookup:    fakeLookup{fingerprint: true, ip: true},
			wantCheck: CheckFingerprint,
			wantCalls: []string{CheckSession, CheckFingerprint},
		},
		{
			name:      "ip last",
			lookup:    fakeLookup{ip: true},
			wantCheck: CheckIP,
			wantCalls: []string{CheckSession, CheckFingerprint, CheckIP},
		},
	}

	reasons := map[string]string{
		CheckSession:     ReasonSessionVoted,
		CheckFingerprint: ReasonDeviceVoted,
		CheckIP:          ReasonNetworkRecent,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := tt.lookup
			v := NewValidator(&lookup, ValidatorConfig{FailOpen: true}, logging.Discard())

			d, err := v.Validate(context.Background(), fullCandidate())
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, lookup.calls)
			if tt.wantCheck == "" {
				assert.True(t, d.Accepted)
				assert.Empty(t, d.Reason)
				return
			}
			assert.False(t, d.Accepted)
			assert.Equal(t, tt.wantCheck, d.Check)
			assert.Equal(t, reasons[tt.wantCheck], d.Reason)
		})
	}
}

func TestValidator_SkipsMissingSignals(t *testing.T) {
	lookup := &fakeLookup{fingerprint: true, ip: true}
	v := NewValidator(lookup, ValidatorConfig{}, logging.Discard())

	d, err := v.Validate(context.Background(), Candidate{EntryID: "e1", SessionID: "s1"})
	require.NoError(t, err)

	assert.True(t, d.Accepted)
	assert.Equal(t, []string{CheckSession}, lookup.calls)
}

func TestValidator_IPWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{}
	v := newValidator(lookup, ValidatorConfig{IPWindow: 5 * time.Minute}, func() time.Time { return now }, logging.Discard())

	_, err := v.Validate(context.Background(), fullCandidate())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-5*time.Minute), lookup.since)
}

func TestValidator_FailOpen(t *testing.T) {
	lookup := &fakeLookup{sessionErr: errBoom, fingerprintErr: errBoom, ipErr: errBoom}
	v := NewValidator(lookup, ValidatorConfig{FailOpen: true}, logging.Discard())

	d, err := v.Validate(context.Background(), fullCandidate())
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Len(t, lookup.calls, 3)
}

func TestValidator_FailOpenStillRejectsLaterMatch(t *testing.T) {
	lookup := &fakeLookup{sessionErr: errBoom, fingerprint: true}
	v := NewValidator(lookup, ValidatorConfig{FailOpen: true}, logging.Discard())

	d, err := v.Validate(context.Background(), fullCandidate())
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, CheckFingerprint, d.Check)
}

func TestValidator_FailClosed(t *testing.T) {
	lookup := &fakeLookup{fingerprintErr: errBoom}
	v := NewValidator(lookup, ValidatorConfig{FailOpen: false}, logging.Discard())

	_, err := v.Validate(context.Background(), fullCandidate())
	require.ErrorIs(t, err, ErrValidationUnavailable)
	assert.Contains(t, err.Error(), CheckFingerprint)
	assert.Equal(t, []string{CheckSession, CheckFingerprint}, lookup.calls)
}
