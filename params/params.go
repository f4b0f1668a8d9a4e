package params

import "time"

const (
	ServerBodyLimit    = 1048576 // 1 MiB
	ServerIdleTimeout  = 30 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second

	SessionKeyPrefix    = "s:"  // session records in redis
	BruteForceKeyPrefix = "bf:" // brute-force failure counters in redis

	SessionMaxAge       = 24 * time.Hour // session cookie and record lifetime
	CSRFTokenExpiration = 12 * time.Hour

	LoginMaxAttempts   = 5                // failed attempts before lockout
	LoginLockoutWindow = 15 * time.Minute // sliding lockout window

	IdempotencyRecordTTL    = 24 * time.Hour        // stored responses expire after this
	IdempotencySweepPeriod  = 1 * time.Hour         // expired record sweep interval
	IdempotencyConflictWait = 50 * time.Millisecond // poll interval while a concurrent reserve completes
	IdempotencyConflictMax  = 40                    // max polls before giving up on a pending record

	LoginRateLimitPerMinute   = 10 // per-IP budget on the login endpoint
	LoginLimiterCleanupPeriod = 10 * time.Minute
	RequestRateLimitMax       = 300 // general per-IP request budget
	RequestRateLimitWindow    = 1 * time.Minute

	HealthCheckServerAddr      = ":3001" // health check server address
	HealthCheckShutdownTimeout = 5 * time.Second
)
