package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — конфигурация сервера витрины.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Cache     CacheConfig
	CORS      CORSConfig
	Admin     AdminConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Env  string `yaml:"env" env:"APP_ENV" env-default:"production"`
}

type FirebaseConfig struct {
	// Пустой ProjectID означает работу без удаленной базы: хранилища
	// сразу стартуют в локальном режиме.
	ProjectID       string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	CredentialsPath string `yaml:"credentials_path" env:"FIREBASE_CREDENTIALS_PATH"`
}

type CacheConfig struct {
	Dir string `yaml:"dir" env:"CACHE_DIR" env-default:"./data"`
}

type CORSConfig struct {
	// Список origin через запятую.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET" env-required:"true"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
}

type RateLimitConfig struct {
	// Лимит публикаций комментариев с одного IP в минуту.
	CommentsPerMinute uint `yaml:"comments_per_minute" env:"COMMENTS_PER_MINUTE" env-default:"5"`
}

// GetAllowedOrigins разбирает список origin из конфигурации.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORS.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORS.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// LoadConfig читает config.yml, а при его отсутствии — переменные окружения.
func LoadConfig() (*Config, error) {
	configPath := "config.yml"

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v. Читаем переменные окружения.", configPath, err)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
		}
	}

	return &cfg, nil
}
