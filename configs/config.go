package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	XClientID          string
	XClientSecret      string
	FacebookAppID      string
	FacebookAppSecret  string
	TiktokClientKey    string
	TiktokClientSecret string
	SiteURL            string
	PostgresURI        string
	RedisURI           string
	R2                 R2
	SecretKey          string
}

func LoadConfig() *Config {
	return &Config{
		XClientID:          getEnv("X_CLIENT_ID", ""),
		XClientSecret:      getEnv("X_CLIENT_SECRET", ""),
		FacebookAppID:      getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:  getEnv("FACEBOOK_APP_SECRET", ""),
		TiktokClientKey:    getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		SiteURL:            getEnv("SITE_URL", "http://localhost:3000"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey: getEnv("SECRET_KEY", ""),
	}
}

// RedirectURI is the OAuth redirect registered with every platform app.
func (c *Config) RedirectURI() string {
	return c.SiteURL + "/admin/social/callback"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
