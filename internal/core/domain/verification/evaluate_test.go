package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	coach := TypeInviteCoach
	badge := TypeAchievementBadge

	active := func(mut func(r *Record)) *Record {
		r := &Record{Type: TypeInviteCoach, Status: StatusActive, ExpiresAt: future}
		if mut != nil {
			mut(r)
		}
		return r
	}

	cases := []struct {
		name     string
		rec      *Record
		expected *Type
		want     Reason
	}{
		{"nil record", nil, nil, ReasonNotFound},
		{"valid", active(nil), nil, ReasonNone},
		{"valid with expected type", active(nil), &coach, ReasonNone},
		{"consumed", active(func(r *Record) { r.Status = StatusConsumed }), nil, ReasonAlreadyConsumed},
		{"not before in future", active(func(r *Record) { r.NotBefore = &future }), nil, ReasonNotYetValid},
		{"not before in past", active(func(r *Record) { r.NotBefore = &past }), nil, ReasonNone},
		{"expired", active(func(r *Record) { r.ExpiresAt = past }), nil, ReasonExpired},
		{"expires exactly now", active(func(r *Record) { r.ExpiresAt = now }), nil, ReasonNone},
		{"type mismatch", active(nil), &badge, ReasonTypeMismatch},
		// consumed wins over expiry and type mismatch
		{"consumed and expired", active(func(r *Record) { r.Status = StatusConsumed; r.ExpiresAt = past }), &badge, ReasonAlreadyConsumed},
		{"not yet valid and expired", active(func(r *Record) { r.NotBefore = &future; r.ExpiresAt = past }), nil, ReasonNotYetValid},
		{"expired and mismatched", active(func(r *Record) { r.ExpiresAt = past }), &badge, ReasonExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Evaluate(tc.rec, now, tc.expected))
		})
	}
}

func TestReasonMessage(t *testing.T) {
	require.Equal(t, "verification record has expired", ReasonExpired.Message())
	require.Equal(t, "SOMETHING_ELSE", Reason("SOMETHING_ELSE").Message())
}

func TestTypeIsValid(t *testing.T) {
	for _, typ := range AllTypes() {
		require.True(t, typ.IsValid(), typ)
	}
	require.False(t, Type("INVITE_ADMIN").IsValid())
}

func TestPayloadScanAndValue(t *testing.T) {
	var p Payload
	require.NoError(t, p.Scan([]byte(`{"a":1}`)))
	v, err := p.Value()
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, v)

	require.NoError(t, p.Scan(nil))
	v, err = p.Value()
	require.NoError(t, err)
	require.Equal(t, "{}", v)

	_, err = Payload("not json").Value()
	require.Error(t, err)

	var dst struct {
		A int `json:"a"`
	}
	require.NoError(t, Payload(`{"a":7}`).Decode(&dst))
	require.Equal(t, 7, dst.A)
}
