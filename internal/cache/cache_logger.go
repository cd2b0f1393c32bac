package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"count", len(keys))
	}
}

// EnrollmentKey is the cache key of one enrollment document
func EnrollmentKey(uid string) string {
	return fmt.Sprintf("uid:%s", uid)
}

// InvalidateEnrollmentCache drops the cached enrollment for uid
func InvalidateEnrollmentCache(ctx context.Context, cm *CacheManager, uid string) {
	SafeDelete(ctx, cm.Enrollment, EnrollmentKey(uid))
}

// InvalidateUserCache drops both lookup keys of an account
func InvalidateUserCache(ctx context.Context, cm *CacheManager, id, email string) {
	keys := []string{fmt.Sprintf("id:%s", id)}
	if email != "" {
		keys = append(keys, fmt.Sprintf("email:%s", email))
	}
	SafeDelete(ctx, cm.User, keys...)
}
