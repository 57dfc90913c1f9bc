package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusUnverified, StatusPending, StatusVerified, StatusRejected, StatusRevoked}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusVerified}:  true,
		{StatusPending, StatusRejected}:  true,
		{StatusVerified, StatusRevoked}:  true,
		{StatusVerified, StatusRejected}: true,
		{StatusRejected, StatusPending}:  true,
		{StatusRevoked, StatusPending}:   true,
	}

	// Transition closure: every pair not in the table is rejected.
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestEffectiveLevel(t *testing.T) {
	now := time.Now()

	t.Run("verified and unexpired returns stored level", func(t *testing.T) {
		r := &Record{Status: StatusVerified, VerificationLevel: 2, ExpiresAt: now.Add(time.Hour)}
		assert.Equal(t, uint8(2), r.EffectiveLevel(now))
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		r := &Record{Status: StatusVerified, VerificationLevel: 2, ExpiresAt: now}
		assert.Equal(t, uint8(0), r.EffectiveLevel(now))
		assert.Equal(t, uint8(2), r.EffectiveLevel(now.Add(-time.Nanosecond)))
	})

	t.Run("zero expiry means no expiry data, never effective", func(t *testing.T) {
		r := &Record{Status: StatusVerified, VerificationLevel: 3}
		assert.Equal(t, uint8(0), r.EffectiveLevel(now))
	})

	t.Run("non-verified statuses are level zero", func(t *testing.T) {
		for _, st := range []Status{StatusUnverified, StatusPending, StatusRejected, StatusRevoked} {
			r := &Record{Status: st, VerificationLevel: 2, ExpiresAt: now.Add(time.Hour)}
			assert.Equal(t, uint8(0), r.EffectiveLevel(now), string(st))
		}
	})

	t.Run("nil record is level zero", func(t *testing.T) {
		var r *Record
		assert.Equal(t, uint8(0), r.EffectiveLevel(now))
		assert.Equal(t, StatusUnverified, r.EffectiveStatus(now))
	})
}

func TestEffectiveStatusExpiredIsDerived(t *testing.T) {
	now := time.Now()
	r := &Record{Status: StatusVerified, VerificationLevel: 1, ExpiresAt: now.Add(time.Minute)}

	assert.Equal(t, StatusVerified, r.EffectiveStatus(now))
	assert.Equal(t, StatusExpired, r.EffectiveStatus(now.Add(2*time.Minute)))
	// Stored status is untouched; expiry is a read-time projection.
	assert.Equal(t, StatusVerified, r.Status)

	snap := r.Snapshot(now.Add(2 * time.Minute))
	assert.True(t, snap.Expired)
	assert.Equal(t, uint8(0), snap.EffectiveLevel)
}
