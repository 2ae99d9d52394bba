package contextkeys

// Custom type avoids collisions with other packages' context keys.
type contextKey string

// DBContextKey holds the *gorm.DB (pool or transaction) in gin's context.
const DBContextKey = contextKey("db")
