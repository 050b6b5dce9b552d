// File: utils/constants.go
package utils

import "time"

// AuthCachePrefix is the prefix used for Redis authorization cache keys.
const AuthCachePrefix = "auth:"

// QuoteCachePrefix is the prefix used for cached booking quotes.
const QuoteCachePrefix = "quote:"

// AuthCacheTTL is how long a verified token hash stays cached.
const AuthCacheTTL = time.Hour

// QuoteCacheTTL is how long a price quote remains valid.
const QuoteCacheTTL = 10 * time.Minute

// TokenDuration is the lifetime of issued auth tokens.
const TokenDuration = 72 * time.Hour
