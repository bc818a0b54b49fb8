package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	sharedCache "github.com/jamaynor/maynor-kernel/shared/platform/cache"
)

// asyncTimeout acota las escrituras en segundo plano.
const asyncTimeout = 200 * time.Millisecond

// AsyncCacheSet actualiza caché en background sin bloquear. Usa su propio contexto: la
// escritura debe terminar aunque la petición original ya se haya cancelado.
func AsyncCacheSet(cache sharedCache.Cache, key string, value any, ttl int, log *zap.Logger) {
	if cache == nil {
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		if err := cache.Set(cacheCtx, key, value, ttl); err != nil {
			log.Warn("Cache update failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// AsyncCacheDelete elimina de caché en background
func AsyncCacheDelete(cache sharedCache.Cache, key string, log *zap.Logger) {
	if cache == nil {
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		if err := cache.Delete(cacheCtx, key); err != nil {
			log.Warn("Cache deletion failed", zap.String("key", key), zap.Error(err))
		}
	}()
}
