package cache

import "context"

// Cache es el puerto compartido de caché clave/valor con TTL.
type Cache interface {
	// Get intenta poblar dest (puntero) con el valor asociado a la key.
	// Devuelve (true, nil) si hay hit y dest fue rellenado; (false, nil) si es miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor con TTL en segundos.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	// Delete elimina la key del cache.
	Delete(ctx context.Context, key string) error
}
