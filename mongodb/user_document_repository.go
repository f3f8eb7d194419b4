package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrSessionLogConflict is returned when the activity log kept changing
// underneath every retry of a read-modify-write.
var ErrSessionLogConflict = errors.New("session log update conflicted too many times")

const maxSessionLogAttempts = 5

// UserDocumentRepository stores the per-user cloud document. All writes are
// merges; the document is never replaced.
type UserDocumentRepository struct {
	users *mongo.Collection
}

// NewUserDocumentRepository creates a UserDocumentRepository on db.
func NewUserDocumentRepository(db *mongo.Database) *UserDocumentRepository {
	return &UserDocumentRepository{users: db.Collection(UsersCollection)}
}

func (r *UserDocumentRepository) ReadUserDocument(ctx context.Context, userKey string) (*domain.RemoteUser, error) {
	raw, err := r.users.FindOne(ctx, bson.M{"_id": userKey}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("user_id", userKey).Msg("Error reading user document")
		return nil, fmt.Errorf("read user document: %w", err)
	}

	return decodeRemoteUser(raw), nil
}

func (r *UserDocumentRepository) EnsureUserDocument(ctx context.Context, userKey string) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userKey},
		bson.M{"$setOnInsert": bson.M{"user_id": userKey}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Error ensuring user document")
		return fmt.Errorf("ensure user document: %w", err)
	}
	return nil
}

func (r *UserDocumentRepository) MergeUserFields(ctx context.Context, userKey string, fields domain.ProfileFields) error {
	set := profileSet(fields)
	if len(set) == 0 {
		return nil
	}
	set["user_id"] = userKey

	_, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userKey},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Error merging user fields")
		return fmt.Errorf("merge user fields: %w", err)
	}
	return nil
}

// AppendOrUpdateSessionLog is an optimistic read-modify-write guarded by the
// log_rev counter. A concurrent writer makes the conditional update miss (or
// the upsert collide on _id) and the merge is recomputed from a fresh read.
func (r *UserDocumentRepository) AppendOrUpdateSessionLog(
	ctx context.Context,
	userKey string,
	login time.Time,
	logout *time.Time,
	extra domain.ProfileFields,
) error {
	for attempt := 1; attempt <= maxSessionLogAttempts; attempt++ {
		entries, rev, found, err := r.readSessionLog(ctx, userKey)
		if err != nil {
			return err
		}

		merged, _ := domain.MergeSessionLog(entries, login, logout)

		set := profileSet(extra)
		set["user_id"] = userKey
		set["activity_log"] = encodeSessionLog(merged)

		filter := bson.M{"_id": userKey}
		if found {
			filter["log_rev"] = rev
		} else {
			filter["log_rev"] = bson.M{"$exists": false}
		}

		res, err := r.users.UpdateOne(ctx, filter,
			bson.M{"$set": set, "$inc": bson.M{"log_rev": 1}},
			options.UpdateOne().SetUpsert(true),
		)
		switch {
		case mongo.IsDuplicateKeyError(err):
			// lost the race to create or bump the document
		case err != nil:
			log.Error().Err(err).Str("user_id", userKey).Msg("Error writing session log")
			return fmt.Errorf("write session log: %w", err)
		case res.MatchedCount > 0 || res.UpsertedCount > 0:
			return nil
		}

		log.Debug().Str("user_id", userKey).Int("attempt", attempt).Msg("Session log changed concurrently, retrying")
	}

	return ErrSessionLogConflict
}

func (r *UserDocumentRepository) readSessionLog(ctx context.Context, userKey string) ([]domain.SessionLogEntry, int64, bool, error) {
	raw, err := r.users.FindOne(ctx, bson.M{"_id": userKey},
		options.FindOne().SetProjection(bson.M{"activity_log": 1, "log_rev": 1}),
	).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, false, nil
		}
		log.Error().Err(err).Str("user_id", userKey).Msg("Error reading session log")
		return nil, 0, false, fmt.Errorf("read session log: %w", err)
	}

	rev, hasRev := raw.Lookup("log_rev").AsInt64OK()
	return decodeSessionLog(raw), rev, hasRev, nil
}

func profileSet(f domain.ProfileFields) bson.M {
	set := bson.M{}
	for key, val := range map[string]string{
		"name":    f.Name,
		"email":   f.Email,
		"address": f.Address,
		"phone":   f.Phone,
		"image":   f.Image,
	} {
		if val != "" {
			set[key] = val
		}
	}
	return set
}

func encodeSessionLog(entries []domain.SessionLogEntry) bson.A {
	arr := make(bson.A, 0, len(entries))
	for _, e := range entries {
		var logout any
		if e.Logout != nil {
			logout = domain.FormatTimestamp(e.Logout)
		}
		arr = append(arr, bson.D{
			{Key: "login_time", Value: domain.FormatTimestamp(&e.Login)},
			{Key: "logout_time", Value: logout},
		})
	}
	return arr
}

// decodeRemoteUser reads the document leniently: a missing or mistyped field
// decodes as "".
func decodeRemoteUser(raw bson.Raw) *domain.RemoteUser {
	str := func(key string) string {
		s, _ := raw.Lookup(key).StringValueOK()
		return s
	}

	return &domain.RemoteUser{
		UserID:      str("user_id"),
		Name:        str("name"),
		Email:       str("email"),
		Address:     str("address"),
		Phone:       str("phone"),
		Image:       str("image"),
		ActivityLog: decodeSessionLog(raw),
	}
}

// decodeSessionLog skips entries without a parseable login time.
func decodeSessionLog(raw bson.Raw) []domain.SessionLogEntry {
	arr, ok := raw.Lookup("activity_log").ArrayOK()
	if !ok {
		return nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil
	}

	entries := make([]domain.SessionLogEntry, 0, len(values))
	for _, v := range values {
		doc, ok := v.DocumentOK()
		if !ok {
			continue
		}
		loginStr, _ := doc.Lookup("login_time").StringValueOK()
		login := domain.ParseTimestamp(loginStr)
		if login == nil {
			continue
		}
		logoutStr, _ := doc.Lookup("logout_time").StringValueOK()
		entries = append(entries, domain.SessionLogEntry{
			Login:  *login,
			Logout: domain.ParseTimestamp(logoutStr),
		})
	}
	return entries
}
