package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerAddr    string `mapstructure:"SERVER_ADDR" validate:"min=2"`
	GinMode       string `mapstructure:"GIN_MODE" validate:"oneof=debug release test"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL" validate:"min=1"`

	DataDir   string `mapstructure:"DATA_DIR" validate:"min=1"`
	MusicDir  string `mapstructure:"MUSIC_DIR" validate:"min=1"`
	ImagesDir string `mapstructure:"IMAGES_DIR" validate:"min=1"`
	TempDir   string `mapstructure:"TEMP_DIR" validate:"min=1"`

	StorageMode string `mapstructure:"STORAGE_MODE" validate:"oneof=file bbolt"`

	FFmpegPath   string `mapstructure:"FFMPEG_PATH" validate:"min=1"`
	AudioBitrate string `mapstructure:"AUDIO_BITRATE" validate:"min=2"`

	YTDLPPath       string        `mapstructure:"YTDLP_PATH" validate:"min=1"`
	MetasearchPath  string        `mapstructure:"METASEARCH_PATH" validate:"min=1"`
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT" validate:"nonzero_duration"`
	RetryPacing     time.Duration `mapstructure:"RETRY_PACING" validate:"nonzero_duration"`

	AdminUser string `mapstructure:"ADMIN_USER" validate:"min=1"`
	AdminPass string `mapstructure:"ADMIN_PASS" validate:"min=1"`
}

func (c *AppConfig) Validate() error {
	v := validator.New()

	_ = v.RegisterValidation("nonzero_duration", func(fl validator.FieldLevel) bool {
		if d, ok := fl.Field().Interface().(time.Duration); ok {
			return d > 0
		} else {
			return false
		}
	})
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

func LoadAppConfig(name, ext string, paths ...string) (*AppConfig, error) {
	for _, path := range paths {
		viper.AddConfigPath(path)
	}
	viper.SetConfigName(name)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	viper.SetDefault("DATA_DIR", "./data/catalog")
	viper.SetDefault("MUSIC_DIR", "./data/music")
	viper.SetDefault("IMAGES_DIR", "./data/images")
	viper.SetDefault("TEMP_DIR", "./data/tmp")
	viper.SetDefault("STORAGE_MODE", "file")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("AUDIO_BITRATE", "320k")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("METASEARCH_PATH", "metasearch")
	viper.SetDefault("PROVIDER_TIMEOUT", 10*time.Minute)
	viper.SetDefault("RETRY_PACING", 2*time.Second)
	viper.SetDefault("ADMIN_USER", "admin")
	viper.SetDefault("ADMIN_PASS", "admin")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}
	cfg := &AppConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
