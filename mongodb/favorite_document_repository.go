package mongodb

import (
	"context"
	"fmt"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type favoriteDocument struct {
	ID      string `bson:"_id"`
	UserID  string `bson:"user_id"`
	MovieID string `bson:"movie_id"`
	Poster  string `bson:"poster"`
	Title   string `bson:"title"`
}

func favoriteDocumentID(userKey, movieKey string) string {
	return userKey + "/" + movieKey
}

// FavoriteDocumentRepository stores the favorites sub-collection, one document
// per (user, movie).
type FavoriteDocumentRepository struct {
	favorites *mongo.Collection
}

// NewFavoriteDocumentRepository creates the repository and ensures its indexes.
func NewFavoriteDocumentRepository(ctx context.Context, db *mongo.Database) (*FavoriteDocumentRepository, error) {
	repo := &FavoriteDocumentRepository{favorites: db.Collection(FavoritesCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create favorites indexes")
	}
	return repo, nil
}

func (r *FavoriteDocumentRepository) createIndexes(ctx context.Context) error {
	_, err := r.favorites.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes for favorites collection: %w", err)
	}
	log.Info().Msg("Indexes for favorites collection ensured.")
	return nil
}

func (r *FavoriteDocumentRepository) ListFavoriteDocuments(ctx context.Context, userKey string) ([]domain.Favorite, error) {
	cursor, err := r.favorites.Find(ctx, bson.M{"user_id": userKey})
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Error listing favorite documents")
		return nil, fmt.Errorf("list favorite documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []favoriteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode favorite documents: %w", err)
	}

	favorites := make([]domain.Favorite, 0, len(docs))
	for _, d := range docs {
		favorites = append(favorites, domain.Favorite{
			UserID:  d.UserID,
			MovieID: d.MovieID,
			Poster:  d.Poster,
			Title:   d.Title,
		})
	}
	return favorites, nil
}

func (r *FavoriteDocumentRepository) UpsertFavoriteDocument(ctx context.Context, fav domain.Favorite) error {
	_, err := r.favorites.UpdateOne(ctx,
		bson.M{"_id": favoriteDocumentID(fav.UserID, fav.MovieID)},
		bson.M{"$set": bson.M{
			"user_id":  fav.UserID,
			"movie_id": fav.MovieID,
			"poster":   fav.Poster,
			"title":    fav.Title,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", fav.UserID).
			Str("movie_id", fav.MovieID).
			Msg("Error upserting favorite document")
		return fmt.Errorf("upsert favorite document: %w", err)
	}
	return nil
}

// DeleteFavoriteDocument succeeds when the document is already absent.
func (r *FavoriteDocumentRepository) DeleteFavoriteDocument(ctx context.Context, userKey, movieKey string) error {
	_, err := r.favorites.DeleteOne(ctx, bson.M{"_id": favoriteDocumentID(userKey, movieKey)})
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userKey).
			Str("movie_id", movieKey).
			Msg("Error deleting favorite document")
		return fmt.Errorf("delete favorite document: %w", err)
	}
	return nil
}
