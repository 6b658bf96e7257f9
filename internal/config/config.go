package config

type Config interface {
	EnvConfig
	CorsConfig
	QuickBooksConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	QuickBooks
	Security
	Store
}

func New() Config {
	return mainConfig{}
}
