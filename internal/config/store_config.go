package config

type StoreConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetRedisAddr selects the backing store for sessions and CSRF state.
// Empty means process-local in-memory maps.
func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}
