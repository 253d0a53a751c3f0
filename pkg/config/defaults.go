package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "depot"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute

	DefaultRequestTimeout = 15 * time.Second
	DefaultIdempotencyTTL = 10 * time.Minute
	DefaultMaxRequestSize = 1 << 20 // 1 MiB

	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 20 * time.Second

	// Advisory locks must outlive the slowest expected approval transaction,
	// but not by so much that a crashed holder blocks an asset for long.
	DefaultAssetLockTTL = 10 * time.Second

	DefaultAssetCodePadding      = 5
	DefaultDefaultCategoryPrefix = "GEN"

	DefaultPaginationLimit = 100
)
