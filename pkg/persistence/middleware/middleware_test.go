package middleware_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/persistence/middleware"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prescription struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
}

func snapshot() *domain.FlowContext {
	return &domain.FlowContext{
		CurrentNodeID: "get_allergies",
		Status:        domain.StatusActive,
		Messages:      []domain.Message{{Role: domain.RoleUser, Content: "I'm Jane"}},
		Facts: map[string]any{
			domain.FactPatientName:   "Jane Doe",
			domain.FactBirthday:      "1990-01-01",
			domain.FactPrescriptions: []prescription{{Medication: "Lisinopril", Dosage: "10mg"}},
		},
		History: []string{"collect_info", "get_prescriptions", "get_allergies"},
	}
}

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1)})
	require.NoError(t, err)
	ports.RunSessionArchiveContract(t, mw(memory.NewArchive()))
}

func TestEncryptionMiddleware(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewArchive()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1)})
	require.NoError(t, err)
	archive := mw(inner)

	require.NoError(t, archive.Save(ctx, "s1", snapshot()))

	stored, err := inner.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.EnvelopeNodeID, stored.CurrentNodeID)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Empty(t, stored.Messages)
	assert.Empty(t, stored.History)
	assert.NotContains(t, stored.Facts, domain.FactPatientName)

	loaded, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "get_allergies", loaded.CurrentNodeID)
	assert.Equal(t, "Jane Doe", loaded.Facts[domain.FactPatientName])
	assert.Len(t, loaded.History, 3)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewArchive()

	old, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1)})
	require.NoError(t, err)
	require.NoError(t, old(inner).Save(ctx, "s1", snapshot()))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    key(2),
		FallbackKeys: [][]byte{key(1)},
	})
	require.NoError(t, err)
	loaded, err := rotated(inner).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", loaded.Facts[domain.FactPatientName])

	wrong, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(3)})
	require.NoError(t, err)
	_, err = wrong(inner).Load(ctx, "s1")
	assert.ErrorContains(t, err, "decryption failed")
}

func TestEncryptionMiddleware_Errors(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1), FallbackKeys: [][]byte{{1}}})
	assert.Error(t, err)

	ctx := context.Background()
	inner := memory.NewArchive()
	require.NoError(t, inner.Save(ctx, "plain", snapshot()))
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1)})
	require.NoError(t, err)
	_, err = mw(inner).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = mw(inner).Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPIIMiddleware(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewArchive()
	mw, err := middleware.NewPIIMiddleware([]string{"^patient_name$", "^birthday$", "medication"})
	require.NoError(t, err)
	archive := mw(inner)

	fc := snapshot()
	require.NoError(t, archive.Save(ctx, "s1", fc))
	assert.Equal(t, "Jane Doe", fc.Facts[domain.FactPatientName], "the live snapshot is not modified")

	stored, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, stored.Facts[domain.FactPatientName])
	assert.Equal(t, middleware.Mask, stored.Facts[domain.FactBirthday])

	rx, ok := stored.Facts[domain.FactPrescriptions].([]any)
	require.True(t, ok)
	require.Len(t, rx, 1)
	assert.Equal(t, map[string]any{"medication": middleware.Mask, "dosage": "10mg"}, rx[0])
	assert.Equal(t, fc.History, stored.History)
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewArchive()
	pii, err := middleware.NewPIIMiddleware([]string{"^birthday$"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key(1)})
	require.NoError(t, err)

	archive := middleware.Chain(inner, pii, enc)
	require.NoError(t, archive.Save(ctx, "s1", snapshot()))

	loaded, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Facts[domain.FactBirthday])
	assert.Equal(t, "Jane Doe", loaded.Facts[domain.FactPatientName])

	ids, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
	require.NoError(t, archive.Delete(ctx, "s1"))
	_, err = archive.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
