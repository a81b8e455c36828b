// Package cache holds the time-bounded memoization of cleaned dataset
// tables. Entries are keyed by source path only and carry an explicit
// expiry; an expired entry is removed on the next lookup and the table is
// loaded again.
package cache
