package mongodb

const (
	UsersCollection     = "users"          // one document per user, _id = user key
	FavoritesCollection = "user_favorites" // users/{u}/favorites/{m}, _id = "{u}/{m}"
)
