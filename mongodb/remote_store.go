package mongodb

import (
	"context"

	"github.com/pilab-dev/reelsync/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// RemoteStore is the document-store side of the sync engine.
type RemoteStore struct {
	*UserDocumentRepository
	*FavoriteDocumentRepository
}

// NewRemoteStore builds both repositories on db.
func NewRemoteStore(ctx context.Context, db *mongo.Database) (*RemoteStore, error) {
	favorites, err := NewFavoriteDocumentRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	return &RemoteStore{
		UserDocumentRepository:     NewUserDocumentRepository(db),
		FavoriteDocumentRepository: favorites,
	}, nil
}

var _ domain.RemoteStore = (*RemoteStore)(nil)
