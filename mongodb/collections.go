package mongodb

const (
	UsersCollection         = "auth_users"
	RefreshTokensCollection = "auth_refresh_tokens"
)
