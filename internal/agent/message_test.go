package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := &HostInitResponse{
		Meta:    NewMeta(),
		Volumes: []server.VolumeConfig{{ID: "vol-1", MountPoint: "/data"}},
		Base: &BaseConfig{
			KeepScriptingLogsTime: 7200,
			APIPort:               8010,
			MessagingPort:         8013,
			Hostname:              "web-3",
		},
	}

	data, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	got, ok := decoded.(*HostInitResponse)
	require.True(t, ok)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, msg.Base, got.Base)
	assert.Equal(t, msg.Volumes, got.Volumes)
}

func TestDecodeAllTypes(t *testing.T) {
	cases := []Message{
		&HostInit{Meta: NewMeta(), RemoteIP: "10.0.0.5"},
		&HostUp{Meta: NewMeta()},
		&HostDown{Meta: NewMeta()},
		&HostUpdate{Meta: NewMeta(), Base: &BaseInfo{APIPort: 9010}},
		&BeforeHostTerminate{Meta: NewMeta(), Suspend: true},
	}

	for _, msg := range cases {
		t.Run(msg.Type(), func(t *testing.T) {
			data, err := Encode(msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg.Type(), decoded.Type())
			assert.Equal(t, msg.GetMeta().ID, decoded.GetMeta().ID)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Bogus","body":{}}`))
	assert.ErrorContains(t, err, `unknown message type "Bogus"`)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestHandledByMarkers(t *testing.T) {
	meta := NewMeta()
	assert.NotEmpty(t, meta.ID)
	assert.False(t, meta.HandledBy("base"))

	meta.MarkHandled("base")
	meta.MarkHandled("mysql")
	assert.True(t, meta.HandledBy("base"))
	assert.True(t, meta.HandledBy("mysql"))
	assert.False(t, meta.HandledBy("nginx"))
	assert.Equal(t, []string{"base", "mysql"}, meta.Handlers)
}
