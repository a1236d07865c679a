package config

const (
	EnvPrefix = "BRANDINBOX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "BRANDINBOX_APP_ENV"
	EnvDBDSN  = "BRANDINBOX_DB_DSN"
	EnvDBHost = "BRANDINBOX_DB_HOST"
	EnvDBUser = "BRANDINBOX_DB_USER"
	EnvDBName = "BRANDINBOX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
