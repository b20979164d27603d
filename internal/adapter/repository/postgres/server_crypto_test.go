package postgres

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/crypto"
)

func testSecretsKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestServerMapperSealsAgentKey(t *testing.T) {
	secretsKey := testSecretsKey(t)
	r := &ServerRepository{secretsKey: secretsKey}

	rec := &server.Record{
		ServerID: "srv-1",
		Platform: "ec2",
		Status:   server.StatusPending,
		AddedAt:  time.Now().UTC(),
	}
	rec.SetProperty(server.PropAgentKey, "plaintext-agent-key")
	rec.SetProperty(server.PropAgentKeyType, server.AgentKeyOneTime)

	model, err := r.toModel(rec)
	require.NoError(t, err)

	// The stored value is sealed; the in-memory record keeps the
	// plaintext the platform adapter hands to the instance.
	sealed := model.Properties[server.PropAgentKey]
	assert.NotEqual(t, "plaintext-agent-key", sealed)
	assert.Equal(t, "plaintext-agent-key", rec.Property(server.PropAgentKey))
	assert.Equal(t, server.AgentKeyOneTime, model.Properties[server.PropAgentKeyType])

	plain, err := crypto.Decrypt(sealed, secretsKey)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-agent-key", plain)

	restored, err := r.toDomain(model)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-agent-key", restored.Property(server.PropAgentKey))
}

func TestServerMapperNoKeyPassthrough(t *testing.T) {
	r := &ServerRepository{}

	rec := &server.Record{ServerID: "srv-1", Status: server.StatusPending}
	rec.SetProperty(server.PropAgentKey, "plaintext-agent-key")

	model, err := r.toModel(rec)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-agent-key", model.Properties[server.PropAgentKey])

	restored, err := r.toDomain(model)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-agent-key", restored.Property(server.PropAgentKey))
}

func TestServerMapperBadSecretsKey(t *testing.T) {
	r := &ServerRepository{secretsKey: "not-base64!"}

	rec := &server.Record{ServerID: "srv-1", Status: server.StatusPending}
	rec.SetProperty(server.PropAgentKey, "plaintext-agent-key")

	_, err := r.toModel(rec)
	assert.ErrorContains(t, err, "seal agent key")
}

func TestServerMapperUnsealGarbage(t *testing.T) {
	r := &ServerRepository{secretsKey: testSecretsKey(t)}

	model := ServerModel{
		ServerID: "srv-1",
		Status:   string(server.StatusPending),
		Properties: map[server.Property]string{
			server.PropAgentKey: "never-sealed",
		},
	}
	_, err := r.toDomain(model)
	assert.ErrorContains(t, err, "unseal agent key")
}
