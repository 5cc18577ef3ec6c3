package globals

// JwtSecret signs and verifies bearer tokens. main sets it from config.
var JwtSecret = []byte("change-me")

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const ShopIDKey ContextKey = "shopId"

// Roles carried in the JWT role claim.
const (
	RoleAdmin    = "admin"
	RoleShop     = "shop"
	RoleCustomer = "customer"
)
