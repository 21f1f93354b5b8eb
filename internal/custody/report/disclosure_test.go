package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"veriseal/internal/custody/models"
	"veriseal/internal/custody/store"
	"veriseal/internal/disclosure/pin"
	dservice "veriseal/internal/disclosure/service"
	dstore "veriseal/internal/disclosure/store"
	"veriseal/internal/disclosure/token"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// flakySnapshots times out for the first failures reads.
type flakySnapshots struct {
	SnapshotReader
	failures int
}

func (f *flakySnapshots) Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error) {
	if f.failures > 0 {
		f.failures--
		return nil, nil, dErrors.New(dErrors.CodePersistenceTimeout, "custody store timed out")
	}
	return f.SnapshotReader.Snapshot(ctx, shipmentID)
}

func TestRecipientRetriesAfterTransientFailure(t *testing.T) {
	ctx := context.Background()
	repo := store.NewInMemory()
	hasher, err := pin.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	hash, err := hasher.Hash("246810")
	require.NoError(t, err)

	sh, err := models.NewShipment(id.NewShipmentID(), "food",
		models.Route{{ID: "CP001", SequenceIndex: 0}}, hash, "qr-retry", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateShipment(ctx, sh))

	tokens, err := token.NewService("report-retry-signing-key-0123456789", time.Minute)
	require.NoError(t, err)
	gate, err := dservice.New(repo, hasher, tokens, dstore.NewInMemory())
	require.NoError(t, err)
	tok, err := gate.VerifyPIN(ctx, sh.ID, "246810")
	require.NoError(t, err)

	builder, err := New(&flakySnapshots{SnapshotReader: repo, failures: 1}, gate)
	require.NoError(t, err)

	_, err = builder.Build(ctx, sh.ID, Recipient(tok.Value))
	assert.True(t, dErrors.HasCode(err, dErrors.CodePersistenceTimeout))

	r, err := builder.Build(ctx, sh.ID, Recipient(tok.Value))
	require.NoError(t, err, "the same token works once the store recovers")
	assert.Equal(t, VerdictSafe, r.Verdict)

	_, err = builder.Build(ctx, sh.ID, Recipient(tok.Value))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized), "a delivered report spends the token")
}
