package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const ns = "auth.accounts"

func TestAccountRepository_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert assigns object id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := NewAccountRepository(mt.DB).Insert(ctx, &domain.Account{
			Username:   "alice",
			Credential: "cred",
			CreatedAt:  time.Now(),
		})
		require.NoError(mt, err)
		assert.True(mt, primitive.IsValidObjectID(created.ID))
		assert.Equal(mt, "alice", created.Username)
	})

	mt.Run("insert duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: auth.accounts index: uniq_username",
		}))

		_, err := NewAccountRepository(mt.DB).Insert(ctx, &domain.Account{Username: "alice", Credential: "cred"})
		assert.ErrorIs(mt, err, domain.ErrUserExists)
	})

	mt.Run("exists", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))

		exists, err := NewAccountRepository(mt.DB).Exists(ctx, "alice")
		require.NoError(mt, err)
		assert.True(mt, exists)
	})

	mt.Run("does not exist", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		exists, err := NewAccountRepository(mt.DB).Exists(ctx, "ghost")
		require.NoError(mt, err)
		assert.False(mt, exists)
	})

	mt.Run("find by username", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "username", Value: "alice"},
			{Key: "credential", Value: "cred"},
			{Key: "created_at", Value: createdAt},
		}))

		got, err := NewAccountRepository(mt.DB).FindByUsername(ctx, "alice")
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, "cred", got.Credential)
		assert.True(mt, got.CreatedAt.Equal(createdAt))
	})

	mt.Run("find missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewAccountRepository(mt.DB).FindByUsername(ctx, "ghost")
		assert.ErrorIs(mt, err, domain.ErrUserNotFound)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, NewAccountRepository(mt.DB).EnsureIndexes(ctx))
	})
}
