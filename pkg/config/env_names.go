package config

// EnvPrefix is passed to envconfig; individual tags spell the full name so the
// prefix stays empty here.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "OPENARTMAP_APP_ENV"
	EnvPort   = "OPENARTMAP_APP_PORT"

	EnvDBDSN  = "OPENARTMAP_DB_DSN"
	EnvDBHost = "OPENARTMAP_DB_HOST"
	EnvDBUser = "OPENARTMAP_DB_USER"
	EnvDBName = "OPENARTMAP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
