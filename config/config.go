package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config file or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	// Admin credentials for the management API. Password is stored as a bcrypt hash.
	AdminUsername      string
	AdminPasswordHash  string
	RateLimitPerMinute int
	// Gin framework configuration
	GinMode string
	GinPath string
	// MySQL
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for memory buffers, profiles and the prompt cache
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// LLM (OpenAI-compatible endpoint, e.g. DashScope compatible-mode)
	LLMAPIKey          string
	LLMBaseURL         string
	ChatModel          string
	SummaryModel       string
	ChatTemperature    float64
	ChatMaxTokens      int
	SummaryTemperature float64
	SummaryMaxTokens   int
	// Memory thresholds: messages accumulated before a summary round is triggered
	MaxUserMessages  int
	MaxGroupMessages int
	// Consolidation worker pool
	ConsolidateWorkers   int
	ConsolidateQueueSize int
	// Check-in and points
	CheckinPoints    int
	StreakBonus      map[int]int
	SystemPromptCost int
	// Seconds the cached per-user system prompt stays valid
	PromptCacheTTLSec int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config or environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getFloat := func(m map[string]any, key string) float64 {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.AdminUsername = getString(app, "AdminUsername")
		out.AdminPasswordHash = getString(app, "AdminPasswordHash")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if llm, ok := raw["llm"].(map[string]any); ok {
		out.LLMAPIKey = getString(llm, "APIKey")
		out.LLMBaseURL = getString(llm, "BaseURL")
		out.ChatModel = getString(llm, "ChatModel")
		out.SummaryModel = getString(llm, "SummaryModel")
		if v := getFloat(llm, "ChatTemperature"); v != 0 {
			out.ChatTemperature = v
		}
		if v := getInt(llm, "ChatMaxTokens"); v != 0 {
			out.ChatMaxTokens = v
		}
		if v := getFloat(llm, "SummaryTemperature"); v != 0 {
			out.SummaryTemperature = v
		}
		if v := getInt(llm, "SummaryMaxTokens"); v != 0 {
			out.SummaryMaxTokens = v
		}
	}

	if mem, ok := raw["memory"].(map[string]any); ok {
		if v := getInt(mem, "MaxUserMessages"); v != 0 {
			out.MaxUserMessages = v
		}
		if v := getInt(mem, "MaxGroupMessages"); v != 0 {
			out.MaxGroupMessages = v
		}
		if v := getInt(mem, "ConsolidateWorkers"); v != 0 {
			out.ConsolidateWorkers = v
		}
		if v := getInt(mem, "ConsolidateQueueSize"); v != 0 {
			out.ConsolidateQueueSize = v
		}
		if v := getInt(mem, "PromptCacheTTLSec"); v != 0 {
			out.PromptCacheTTLSec = v
		}
	}

	if pts, ok := raw["points"].(map[string]any); ok {
		if v := getInt(pts, "CheckinPoints"); v != 0 {
			out.CheckinPoints = v
		}
		if v := getInt(pts, "SystemPromptCost"); v != 0 {
			out.SystemPromptCost = v
		}
		if bonus, ok := pts["StreakBonus"].(map[string]any); ok {
			table := make(map[int]int, len(bonus))
			for days, extra := range bonus {
				d, err := strconv.Atoi(days)
				if err != nil {
					continue
				}
				if f, ok := extra.(float64); ok {
					table[d] = int(f)
				}
			}
			if len(table) > 0 {
				out.StreakBonus = table
			}
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "nuobot"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if c.ChatModel == "" {
		c.ChatModel = "deepseek-v3.2"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = "qwen-flash"
	}
	if c.ChatTemperature == 0 {
		c.ChatTemperature = 1.0
	}
	if c.ChatMaxTokens == 0 {
		c.ChatMaxTokens = 100
	}
	if c.SummaryTemperature == 0 {
		c.SummaryTemperature = 0.6
	}
	if c.SummaryMaxTokens == 0 {
		c.SummaryMaxTokens = 100
	}
	if c.MaxUserMessages == 0 {
		c.MaxUserMessages = 40
	}
	if c.MaxGroupMessages == 0 {
		c.MaxGroupMessages = 100
	}
	if c.ConsolidateWorkers == 0 {
		c.ConsolidateWorkers = 2
	}
	if c.ConsolidateQueueSize == 0 {
		c.ConsolidateQueueSize = 64
	}
	if c.CheckinPoints == 0 {
		c.CheckinPoints = 50
	}
	if c.StreakBonus == nil {
		c.StreakBonus = map[int]int{7: 50, 30: 150}
	}
	if c.SystemPromptCost == 0 {
		c.SystemPromptCost = 50
	}
	if c.PromptCacheTTLSec == 0 {
		c.PromptCacheTTLSec = 3600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("ADMIN_USERNAME", ""); v != "" {
		c.AdminUsername = v
	}
	if v := getEnv("ADMIN_PASSWORD_HASH", ""); v != "" {
		c.AdminPasswordHash = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LLM_API_KEY", ""); v != "" {
		c.LLMAPIKey = v
	}
	// DashScope compatibility: honor the vendor variable name too
	if c.LLMAPIKey == "" {
		c.LLMAPIKey = getEnv("DASHSCOPE_API_KEY", "")
	}
	if v := getEnv("LLM_BASE_URL", ""); v != "" {
		c.LLMBaseURL = v
	}
	if v := getEnv("CHAT_MODEL", ""); v != "" {
		c.ChatModel = v
	}
	if v := getEnv("SUMMARY_MODEL", ""); v != "" {
		c.SummaryModel = v
	}
	if v := getEnv("MAX_USER_MESSAGES", ""); v != "" {
		c.MaxUserMessages = mustParseInt(v)
	}
	if v := getEnv("MAX_GROUP_MESSAGES", ""); v != "" {
		c.MaxGroupMessages = mustParseInt(v)
	}
	if v := getEnv("CHECKIN_POINTS", ""); v != "" {
		c.CheckinPoints = mustParseInt(v)
	}
	if v := getEnv("SYSTEM_PROMPT_COST", ""); v != "" {
		c.SystemPromptCost = mustParseInt(v)
	}
	if v := getEnv("PROMPT_CACHE_TTL_SEC", ""); v != "" {
		c.PromptCacheTTLSec = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}
