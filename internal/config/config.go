package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Knowledge KnowledgeConfig
	Session   SessionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type WhatsAppConfig struct {
	VerifyToken   string
	AccessToken   string
	PhoneNumberID string
}

type GeminiConfig struct {
	APIKey string
	Model  string
	// ReplyLanguage selects the prompt variant: "english" answers in English
	// unless the user switches language, "mirror" always answers in the
	// user's language.
	ReplyLanguage string
}

type OllamaConfig struct {
	BaseURL    string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

type KnowledgeConfig struct {
	PDFPath      string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

type SessionConfig struct {
	Timeout       time.Duration
	SweepInterval time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 5000,
		},
		Gemini: GeminiConfig{
			Model:         "gemini-2.0-flash",
			ReplyLanguage: "english",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Knowledge: KnowledgeConfig{
			PDFPath:      "data/company-profile.pdf",
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         3,
		},
		Session: SessionConfig{
			Timeout:       5 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diksha"
	}
	return home + "/.diksha"
}

// Load reads configuration from a .env file (if present) and DIKSHA_*
// environment variables, applied over built-in defaults. Environment
// variables always win over .env values.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

// loadWith builds a Config from the given environment lookup. Split out so
// tests can inject an environment without mutating the process.
func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	setString(getenv, "DIKSHA_VERIFY_TOKEN", &cfg.WhatsApp.VerifyToken)
	setString(getenv, "DIKSHA_WA_ACCESS_TOKEN", &cfg.WhatsApp.AccessToken)
	setString(getenv, "DIKSHA_WA_PHONE_NUMBER_ID", &cfg.WhatsApp.PhoneNumberID)
	setString(getenv, "DIKSHA_GEMINI_API_KEY", &cfg.Gemini.APIKey)
	setString(getenv, "DIKSHA_GEMINI_MODEL", &cfg.Gemini.Model)
	setString(getenv, "DIKSHA_REPLY_LANGUAGE", &cfg.Gemini.ReplyLanguage)
	setString(getenv, "DIKSHA_OLLAMA_BASE_URL", &cfg.Ollama.BaseURL)
	setString(getenv, "DIKSHA_EMBED_MODEL", &cfg.Ollama.EmbedModel)
	setString(getenv, "DIKSHA_DATA_DIR", &cfg.Storage.DataDir)
	setString(getenv, "DIKSHA_PDF_PATH", &cfg.Knowledge.PDFPath)
	setString(getenv, "DIKSHA_LOG_LEVEL", &cfg.Log.Level)

	if err := setInt(getenv, "DIKSHA_PORT", &cfg.Server.Port); err != nil {
		return Config{}, err
	}
	if err := setInt(getenv, "DIKSHA_CHUNK_SIZE", &cfg.Knowledge.ChunkSize); err != nil {
		return Config{}, err
	}
	if err := setInt(getenv, "DIKSHA_CHUNK_OVERLAP", &cfg.Knowledge.ChunkOverlap); err != nil {
		return Config{}, err
	}
	if err := setInt(getenv, "DIKSHA_RETRIEVAL_TOP_K", &cfg.Knowledge.TopK); err != nil {
		return Config{}, err
	}
	if err := setDuration(getenv, "DIKSHA_SESSION_TIMEOUT", &cfg.Session.Timeout); err != nil {
		return Config{}, err
	}
	if err := setDuration(getenv, "DIKSHA_SWEEP_INTERVAL", &cfg.Session.SweepInterval); err != nil {
		return Config{}, err
	}

	switch cfg.Gemini.ReplyLanguage {
	case "english", "mirror":
	default:
		return Config{}, fmt.Errorf("invalid DIKSHA_REPLY_LANGUAGE %q: must be \"english\" or \"mirror\"", cfg.Gemini.ReplyLanguage)
	}

	if cfg.WhatsApp.VerifyToken == "" {
		return Config{}, fmt.Errorf("missing required config: webhook verify token. Set DIKSHA_VERIFY_TOKEN")
	}
	if cfg.WhatsApp.AccessToken == "" {
		return Config{}, fmt.Errorf("missing required config: WhatsApp access token. Set DIKSHA_WA_ACCESS_TOKEN")
	}
	if cfg.WhatsApp.PhoneNumberID == "" {
		return Config{}, fmt.Errorf("missing required config: WhatsApp phone number ID. Set DIKSHA_WA_PHONE_NUMBER_ID")
	}
	if cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. Set DIKSHA_GEMINI_API_KEY")
	}

	return cfg, nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(getenv func(string) string, key string, dst *time.Duration) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d
	return nil
}
