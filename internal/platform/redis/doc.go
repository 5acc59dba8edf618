// Package redis opens the optional Redis connection used for cross-instance
// coordination.
package redis
