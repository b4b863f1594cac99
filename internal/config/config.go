package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	Quota       QuotaConfig
}

// QuotaConfig is resolved once at startup and injected; services never read
// quota settings from the environment directly.
type QuotaConfig struct {
	MonthlyLimitByPlan    map[string]int
	SoftThresholdPercent  int
	HardEnforcementByPlan map[string]bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-deo"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-deo"),
		Quota: QuotaConfig{
			MonthlyLimitByPlan: map[string]int{
				"free":   getEnvInt("AI_MONTHLY_LIMIT_FREE", 25),
				"pro":    getEnvInt("AI_MONTHLY_LIMIT_PRO", 500),
				"growth": getEnvInt("AI_MONTHLY_LIMIT_GROWTH", 5000),
			},
			SoftThresholdPercent: getEnvInt("AI_QUOTA_SOFT_THRESHOLD", 80),
			HardEnforcementByPlan: map[string]bool{
				"free":   true,
				"pro":    getEnv("AI_QUOTA_HARD_PRO", "false") == "true",
				"growth": getEnv("AI_QUOTA_HARD_GROWTH", "false") == "true",
			},
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}
