package config

import "os"

type Config struct {
	App      AppConfig
	Auth     AuthConfig
	ACL      ACLConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      string
	AdminLogin    string
	AdminPassword string
}

type ACLConfig struct {
	RolesDir string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       string
}

func Load() Config {
	return Config{
		App: AppConfig{
			Env:  getenv("APP_ENV", "production"),
			Port: getenv("PORT", "8080"),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenTTL:      getenv("JWT_TOKEN_EXP", "86400"),
			AdminLogin:    getenv("ADMIN_LOGIN", "admin"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		ACL: ACLConfig{
			RolesDir: getenv("ACL_ROLES_DIR", "config/acl"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenv("REDIS_DB", "0"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
