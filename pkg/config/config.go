package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// ConfigFile путь к .env файлу и указатель на структуру с тегами envconfig.
type ConfigFile struct {
	// Путь к файлу. Пустой путь - только переменные окружения.
	Path string
	// Optional - отсутствие файла не считается ошибкой.
	Optional bool
	// Конфигурация - указатель на структуру.
	Config interface{}
}

// LoadConfigFiles загружает несколько .env файлов и анмаршалит окружение в структуры.
// Переменные, уже заданные в окружении, файлом не перезаписываются.
func LoadConfigFiles(configFiles ...*ConfigFile) error {
	for _, configFile := range configFiles {
		if configFile.Path != "" {
			if err := godotenv.Load(configFile.Path); err != nil {
				if !configFile.Optional || !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("load %s: %w", configFile.Path, err)
				}
			}
		}

		if err := envconfig.Process("", configFile.Config); err != nil {
			return fmt.Errorf("process env: %w", err)
		}
	}
	return nil
}

// LoadConfigs анмаршалит переменные окружения в структуры.
//   - config - ссылки на структуры с тегами envconfig.
func LoadConfigs(config ...interface{}) error {
	for _, cfg := range config {
		if err := envconfig.Process("", cfg); err != nil {
			return fmt.Errorf("process env: %w", err)
		}
	}
	return nil
}

// LoadEnv подгружает .env, если он есть, и анмаршалит окружение в структуры.
// Отсутствие файла только логгируется.
func LoadEnv(path string, logger *zap.Logger, config ...interface{}) error {
	if err := godotenv.Load(path); err != nil {
		logger.Info("no .env file loaded, using environment variables", zap.String("path", path), zap.Error(err))
	}
	return LoadConfigs(config...)
}
