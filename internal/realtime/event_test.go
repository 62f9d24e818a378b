package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	alice = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	bob   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func TestMessageEventRoundTrip(t *testing.T) {
	sent := models.Message{
		ID:         42,
		SenderID:   alice,
		ReceiverID: bob,
		Text:       "hello",
		CreatedAt:  time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}

	env, err := realtime.MessageInserted(sent).Envelope()
	require.NoError(t, err)
	require.Equal(t, realtime.TableMessages, env.Table)
	require.Equal(t, realtime.KindInsert, env.Type)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	ev, err := realtime.Decode(data)
	require.NoError(t, err)
	require.Equal(t, realtime.TableMessages, ev.Table)
	require.NotNil(t, ev.Message)
	require.Nil(t, ev.User)
	require.Equal(t, sent, *ev.Message)
}

func TestUserEventRoundTrip(t *testing.T) {
	u := models.User{ID: alice, Email: "alice@example.com", Name: "Alice", IsOnline: true}

	env, err := realtime.UserUpdated(u).Envelope()
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	ev, err := realtime.Decode(data)
	require.NoError(t, err)
	require.Equal(t, realtime.TableUsers, ev.Table)
	require.Equal(t, realtime.KindUpdate, ev.Kind)
	require.NotNil(t, ev.User)

	require.Equal(t, alice, ev.User.ID)
	require.Equal(t, "Alice", *ev.User.Name)
	require.True(t, *ev.User.IsOnline)
}

func TestDecodePartialUserPatch(t *testing.T) {
	// A payload that only carries is_online leaves the other pointers
	// nil, so a consumer knows not to touch those fields.
	data := []byte(`{"table":"users","type":"UPDATE","record":{"id":"` + alice.String() + `","is_online":true}}`)

	ev, err := realtime.Decode(data)
	require.NoError(t, err)
	require.NotNil(t, ev.User)
	require.Nil(t, ev.User.Email)
	require.Nil(t, ev.User.Name)
	require.Nil(t, ev.User.AvatarURL)
	require.True(t, *ev.User.IsOnline)
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unknown table", `{"table":"channels","type":"INSERT","record":{}}`},
		{"unknown kind", `{"table":"messages","type":"DELETE","record":{}}`},
		{"user update without id", `{"table":"users","type":"UPDATE","record":{"name":"x"}}`},
		{"message without id", `{"table":"messages","type":"INSERT","record":{"sender_id":"` + alice.String() + `","receiver_id":"` + bob.String() + `"}}`},
		{"message without participants", `{"table":"messages","type":"INSERT","record":{"id":7}}`},
		{"record wrong shape", `{"table":"messages","type":"INSERT","record":[1,2,3]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := realtime.Decode([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestEnvelopeRejectsMismatchedEvent(t *testing.T) {
	_, err := realtime.Event{Table: realtime.TableUsers, Kind: realtime.KindInsert}.Envelope()
	require.Error(t, err)

	_, err = realtime.Event{Table: realtime.TableMessages, Kind: realtime.KindInsert}.Envelope()
	require.Error(t, err)
}
