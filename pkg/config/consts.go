package config

const (
	EnvPrefix = "communa"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COMMUNA_DB_DSN"
	EnvDBHost = "COMMUNA_DB_HOST"
	EnvDBUser = "COMMUNA_DB_USER"
	EnvDBName = "COMMUNA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
