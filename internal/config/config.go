package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
		RateLimit    float64       `yaml:"rate_limit" default:"20"` // inbound requests per second per client, 0 disables
		// AllowPrivateHosts permits scraping loopback and RFC 1918 hosts.
		// Leave off outside local development.
		AllowPrivateHosts bool `yaml:"allow_private_hosts" default:"false"`
	} `yaml:"server"`

	Workers struct {
		PoolSize   int           `yaml:"pool_size" default:"10"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RateLimit  int           `yaml:"rate_limit" default:"60"` // requests per minute per domain
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
	} `yaml:"workers"`

	BackgroundTasks struct {
		MaxConcurrentTasks int           `yaml:"max_concurrent_tasks" default:"50"`
		MaxQueueSize       int           `yaml:"max_queue_size" default:"100"`
		TaskTimeout        time.Duration `yaml:"task_timeout" default:"300s"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge         time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	LLM struct {
		Provider      string        `yaml:"provider" default:"claude"`
		APIKey        string        `yaml:"api_key"`
		OpenAIAPIKey  string        `yaml:"openai_api_key"`
		Model         string        `yaml:"model" default:"claude-3-haiku-20240307"`
		MaxTokens     int           `yaml:"max_tokens" default:"4096"`
		Temperature   float32       `yaml:"temperature" default:"0.1"`
		Timeout       time.Duration `yaml:"timeout" default:"30s"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"1h"`
		MinConfidence float64       `yaml:"min_confidence" default:"0.7"`
	} `yaml:"llm"`

	Scraper struct {
		UserAgents     []string      `yaml:"user_agents"`
		MaxRetries     int           `yaml:"max_retries" default:"3"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		Delays         struct {
			AmazonMin  time.Duration `yaml:"amazon_min" default:"1s"`
			AmazonMax  time.Duration `yaml:"amazon_max" default:"3s"`
			GenericMin time.Duration `yaml:"generic_min" default:"500ms"`
			GenericMax time.Duration `yaml:"generic_max" default:"2s"`
			RetryMin   time.Duration `yaml:"retry_min" default:"2s"`
			RetryMax   time.Duration `yaml:"retry_max" default:"5s"`
		} `yaml:"delays"`
	} `yaml:"scraper"`

	Tracker struct {
		Store string `yaml:"store" default:"memory"` // memory or redis
	} `yaml:"tracker"`

	Scheduler struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Cron    string `yaml:"cron" default:"*/15 * * * *"`
	} `yaml:"scheduler"`

	Notify struct {
		SMTP struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port" default:"587"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
		} `yaml:"smtp"`
	} `yaml:"notify"`

	Callback struct {
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		Enabled    bool          `yaml:"enabled" default:"true"`
	} `yaml:"callback"`

	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool          `yaml:"enabled" default:"false"`
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	// Expand ${VAR} syntax
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if env var not found
	})

	// Expand $VAR syntax (but avoid replacing ${VAR} that was already processed)
	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if env var not found
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.RateLimit = 20

	config.Workers.PoolSize = 10
	config.Workers.QueueSize = 100
	config.Workers.RateLimit = 60
	config.Workers.Timeout = 30 * time.Second
	config.Workers.MaxRetries = 3

	config.BackgroundTasks.MaxConcurrentTasks = 50
	config.BackgroundTasks.MaxQueueSize = 100
	config.BackgroundTasks.TaskTimeout = 300 * time.Second
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-haiku-20240307"
	config.LLM.MaxTokens = 4096
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 30 * time.Second
	config.LLM.CacheTTL = 1 * time.Hour
	config.LLM.MinConfidence = 0.7

	config.Scraper.MaxRetries = 3
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.Delays.AmazonMin = 1 * time.Second
	config.Scraper.Delays.AmazonMax = 3 * time.Second
	config.Scraper.Delays.GenericMin = 500 * time.Millisecond
	config.Scraper.Delays.GenericMax = 2 * time.Second
	config.Scraper.Delays.RetryMin = 2 * time.Second
	config.Scraper.Delays.RetryMax = 5 * time.Second

	config.Tracker.Store = "memory"

	config.Scheduler.Enabled = true
	config.Scheduler.Cron = "*/15 * * * *"

	config.Notify.SMTP.Port = 587

	config.Callback.Timeout = 30 * time.Second
	config.Callback.MaxRetries = 3
	config.Callback.Enabled = true

	config.Metrics.Enabled = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			// Expand environment variables in the YAML content
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	// The Anthropic SDK convention works too
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = apiKey
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		c.LLM.OpenAIAPIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if cacheTTL := os.Getenv("LLM_CACHE_TTL"); cacheTTL != "" {
		if ttl, err := time.ParseDuration(cacheTTL); err == nil {
			c.LLM.CacheTTL = ttl
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if redisEnabled := os.Getenv("REDIS_ENABLED"); redisEnabled != "" {
		c.Redis.Enabled = redisEnabled == "true" || redisEnabled == "1"
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if store := os.Getenv("TRACKER_STORE"); store != "" {
		c.Tracker.Store = store
	}

	if schedulerEnabled := os.Getenv("SCHEDULER_ENABLED"); schedulerEnabled != "" {
		c.Scheduler.Enabled = schedulerEnabled == "true" || schedulerEnabled == "1"
	}

	if cronExpr := os.Getenv("SCHEDULER_CRON"); cronExpr != "" {
		c.Scheduler.Cron = cronExpr
	}

	// SMTP configuration
	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		c.Notify.SMTP.Host = smtpHost
	}

	if smtpPort := os.Getenv("SMTP_PORT"); smtpPort != "" {
		if port, err := strconv.Atoi(smtpPort); err == nil {
			c.Notify.SMTP.Port = port
		}
	}

	if smtpUsername := os.Getenv("SMTP_USERNAME"); smtpUsername != "" {
		c.Notify.SMTP.Username = smtpUsername
	}

	if smtpPassword := os.Getenv("SMTP_PASSWORD"); smtpPassword != "" {
		c.Notify.SMTP.Password = smtpPassword
	}

	if smtpFrom := os.Getenv("SMTP_FROM"); smtpFrom != "" {
		c.Notify.SMTP.From = smtpFrom
	}

	// Callback configuration
	if callbackURL := os.Getenv("CALLBACK_URL"); callbackURL != "" {
		c.Callback.URL = callbackURL
	}

	if callbackTimeout := os.Getenv("CALLBACK_TIMEOUT"); callbackTimeout != "" {
		if timeout, err := time.ParseDuration(callbackTimeout); err == nil {
			c.Callback.Timeout = timeout
		}
	}

	if callbackMaxRetries := os.Getenv("CALLBACK_MAX_RETRIES"); callbackMaxRetries != "" {
		if retries, err := strconv.Atoi(callbackMaxRetries); err == nil {
			c.Callback.MaxRetries = retries
		}
	}

	if callbackEnabled := os.Getenv("CALLBACK_ENABLED"); callbackEnabled != "" {
		c.Callback.Enabled = callbackEnabled == "true" || callbackEnabled == "1"
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		c.Metrics.Enabled = metricsEnabled == "true" || metricsEnabled == "1"
	}

	// Handle Betterstack adapter enabled/disabled via environment variable
	if betterstackEnabled := os.Getenv("BETTERSTACK_ENABLED"); betterstackEnabled != "" {
		enabled := betterstackEnabled == "true" || betterstackEnabled == "1"

		// Find and update the Betterstack adapter
		for i := range c.Logging.Adapters {
			if c.Logging.Adapters[i].Name == "betterstack" || c.Logging.Adapters[i].Type == "betterstack" {
				c.Logging.Adapters[i].Enabled = enabled
				break
			}
		}
	}

	// Handle additional logging adapter options via environment variables
	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]

		switch adapter.Type {
		case "betterstack":
			if token := os.Getenv("BETTERSTACK_SOURCE_TOKEN"); token != "" {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["source_token"] = token
			}

			if endpoint := os.Getenv("BETTERSTACK_ENDPOINT"); endpoint != "" {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["endpoint"] = endpoint
			}

			if maxRetries := os.Getenv("BETTERSTACK_MAX_RETRIES"); maxRetries != "" {
				if retries, err := strconv.Atoi(maxRetries); err == nil {
					if adapter.Options == nil {
						adapter.Options = make(map[string]interface{})
					}
					adapter.Options["max_retries"] = retries
				}
			}

			if timeout := os.Getenv("BETTERSTACK_TIMEOUT"); timeout != "" {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["timeout"] = timeout
			}
		}
	}
}
