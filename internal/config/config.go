package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTopic is the MQTT topic alerts are published to.
	DefaultTopic = "userTopic"
	// DefaultBaseURL points the OpenAI-compatible client at Groq.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultOpenAIModel is the multimodal model used by the openai backend.
	DefaultOpenAIModel = "llama-3.2-11b-vision-preview"
	// DefaultGeminiModel is the model used by the gemini backend.
	DefaultGeminiModel = "gemini-2.5-flash"
)

type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Detection  DetectionConfig  `yaml:"detection"`
	Twilio     TwilioConfig     `yaml:"twilio"`

	CameraDevice          int           `yaml:"camera_device"`
	FrameInterval         time.Duration `yaml:"frame_interval"` // Pauza między klatkami (0 = bez limitu)
	Headless              bool          `yaml:"headless"`
	DBPath                string        `yaml:"db_path"` // Pusty = dziennik wyłączony
	SnapshotDirectory     string        `yaml:"snapshot_dir"`
	SnapshotBufferLimit   int           `yaml:"snapshot_buffer_limit"`
	SnapshotFlushInterval int           `yaml:"snapshot_flush_interval"` // w sekundach
	LogDirectory          string        `yaml:"log_dir"`
	Debug                 bool          `yaml:"debug"`
	TrackerPort           int           `yaml:"tracker_port"`
	Password              string        `yaml:"password"`
}

type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`

	// Klient trackera musi mieć inny identyfikator niż detektor
	TrackerClientID string `yaml:"tracker_client_id"`
}

type ClassifierConfig struct {
	Backend      string        `yaml:"backend"` // openai | gemini
	APIKey       string        `yaml:"api_key"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	FailureWarn  int           `yaml:"failure_warn"` // Ile kolejnych błędów zanim zgłosimy degradację
}

// DetectionConfig holds the flame colour band (OpenCV 8-bit HSV units,
// hue in [0,180]) and the debounce threshold.
type DetectionConfig struct {
	HueMin           int `yaml:"hue_min"`
	HueMax           int `yaml:"hue_max"`
	SatMin           int `yaml:"sat_min"`
	SatMax           int `yaml:"sat_max"`
	ValMin           int `yaml:"val_min"`
	ValMax           int `yaml:"val_max"`
	MinFirePixels    int `yaml:"min_fire_pixels"`
	TriggerThreshold int `yaml:"trigger_threshold"`
	JPEGQuality      int `yaml:"jpeg_quality"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
}

// Enabled reports whether enough Twilio settings are present to send SMS.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != "" && t.To != ""
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Port:  8883,
			TLS:   true,
			Topic: DefaultTopic,
		},
		Classifier: ClassifierConfig{
			Backend:     "openai",
			BaseURL:     DefaultBaseURL,
			Timeout:     20 * time.Second,
			FailureWarn: 5,
		},
		Detection: DetectionConfig{
			HueMin:           0,
			HueMax:           40,
			SatMin:           100,
			SatMax:           255,
			ValMin:           100,
			ValMax:           255,
			MinFirePixels:    3000,
			TriggerThreshold: 1,
			JPEGQuality:      90,
		},
		CameraDevice:          0,
		DBPath:                filepath.Join(".", "data", "sparkvision.db"),
		SnapshotDirectory:     filepath.Join(".", "snapshots"),
		SnapshotBufferLimit:   10,
		SnapshotFlushInterval: 30,
		LogDirectory:          filepath.Join(".", "logs"),
		TrackerPort:           3000,
		Password:              "sparkvision",
	}
}

// Load builds the configuration: .env first, then the optional YAML file,
// then environment variables on top.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("SPARKVISION_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "sparkvision-" + uuid.NewString()
	}
	if cfg.MQTT.TrackerClientID == "" {
		cfg.MQTT.TrackerClientID = cfg.MQTT.ClientID + "-tracker"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = defaultModel(cfg.Classifier.Backend)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	c.MQTT.Host = getEnv("MQTT_HOST", c.MQTT.Host)
	if c.MQTT.Port, err = getEnvAsInt("MQTT_PORT", c.MQTT.Port); err != nil {
		return err
	}
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
	if c.MQTT.TLS, err = getEnvAsBool("MQTT_TLS", c.MQTT.TLS); err != nil {
		return err
	}
	c.MQTT.Topic = getEnv("MQTT_TOPIC", c.MQTT.Topic)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.TrackerClientID = getEnv("MQTT_TRACKER_CLIENT_ID", c.MQTT.TrackerClientID)

	c.Classifier.Backend = strings.ToLower(getEnv("CLASSIFIER_BACKEND", c.Classifier.Backend))
	c.Classifier.APIKey = getEnv("GROQ_API_KEY", c.Classifier.APIKey)
	c.Classifier.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Classifier.GeminiAPIKey)
	c.Classifier.BaseURL = getEnv("CLASSIFIER_BASE_URL", c.Classifier.BaseURL)
	c.Classifier.Model = getEnv("CLASSIFIER_MODEL", c.Classifier.Model)
	if c.Classifier.Timeout, err = getEnvAsDuration("CLASSIFIER_TIMEOUT", c.Classifier.Timeout); err != nil {
		return err
	}
	if c.Classifier.FailureWarn, err = getEnvAsInt("CLASSIFIER_FAILURE_WARN", c.Classifier.FailureWarn); err != nil {
		return err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"HUE_MIN", &c.Detection.HueMin},
		{"HUE_MAX", &c.Detection.HueMax},
		{"SAT_MIN", &c.Detection.SatMin},
		{"SAT_MAX", &c.Detection.SatMax},
		{"VAL_MIN", &c.Detection.ValMin},
		{"VAL_MAX", &c.Detection.ValMax},
		{"MIN_FIRE_PIXELS", &c.Detection.MinFirePixels},
		{"TRIGGER_THRESHOLD", &c.Detection.TriggerThreshold},
		{"JPEG_QUALITY", &c.Detection.JPEGQuality},
		{"CAMERA_DEVICE", &c.CameraDevice},
		{"SNAPSHOT_BUFFER_LIMIT", &c.SnapshotBufferLimit},
		{"SNAPSHOT_FLUSH_INTERVAL", &c.SnapshotFlushInterval},
		{"TRACKER_PORT", &c.TrackerPort},
	}
	for _, entry := range ints {
		if *entry.dst, err = getEnvAsInt(entry.key, *entry.dst); err != nil {
			return err
		}
	}

	c.Twilio.AccountSID = getEnv("TWILIO_SID", c.Twilio.AccountSID)
	c.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", c.Twilio.AuthToken)
	c.Twilio.From = getEnv("TWILIO_PHONE_NUMBER", c.Twilio.From)
	c.Twilio.To = getEnv("DEST_PHONE_NUMBER", c.Twilio.To)

	if c.FrameInterval, err = getEnvAsDuration("FRAME_INTERVAL", c.FrameInterval); err != nil {
		return err
	}
	if c.Headless, err = getEnvAsBool("HEADLESS", c.Headless); err != nil {
		return err
	}
	if c.Debug, err = getEnvAsBool("DEBUG", c.Debug); err != nil {
		return err
	}
	if value, ok := os.LookupEnv("DB_PATH"); ok {
		c.DBPath = value
	}
	c.SnapshotDirectory = getEnv("SNAPSHOT_DIR", c.SnapshotDirectory)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.Password = getEnv("PASSWORD", c.Password)

	return nil
}

// Validate checks the settings shared by both binaries.
func (c *Config) Validate() error {
	var problems []string

	if c.MQTT.Host == "" {
		problems = append(problems, "MQTT_HOST is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		problems = append(problems, fmt.Sprintf("MQTT_PORT out of range: %d", c.MQTT.Port))
	}
	if c.MQTT.Username == "" {
		problems = append(problems, "MQTT_USERNAME is required")
	}
	if c.MQTT.Password == "" {
		problems = append(problems, "MQTT_PASSWORD is required")
	}
	if c.MQTT.Topic == "" {
		problems = append(problems, "MQTT_TOPIC must not be empty")
	}
	if c.MQTT.ClientID != "" && c.MQTT.ClientID == c.MQTT.TrackerClientID {
		problems = append(problems, "MQTT_TRACKER_CLIENT_ID must differ from MQTT_CLIENT_ID")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateDetector additionally checks classifier and detection settings.
func (c *Config) ValidateDetector() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var problems []string

	switch c.Classifier.Backend {
	case "openai":
		if c.Classifier.APIKey == "" {
			problems = append(problems, "GROQ_API_KEY is required for the openai backend")
		}
	case "gemini":
		if c.Classifier.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown classifier backend: %q", c.Classifier.Backend))
	}
	if c.Classifier.Timeout <= 0 {
		problems = append(problems, "CLASSIFIER_TIMEOUT must be positive")
	}

	d := c.Detection
	if d.TriggerThreshold < 1 {
		problems = append(problems, fmt.Sprintf("TRIGGER_THRESHOLD must be at least 1, got %d", d.TriggerThreshold))
	}
	if d.MinFirePixels < 0 {
		problems = append(problems, "MIN_FIRE_PIXELS must not be negative")
	}
	if d.HueMin < 0 || d.HueMax > 180 || d.HueMin > d.HueMax {
		problems = append(problems, fmt.Sprintf("invalid hue range [%d,%d]", d.HueMin, d.HueMax))
	}
	if d.SatMin < 0 || d.SatMax > 255 || d.SatMin > d.SatMax {
		problems = append(problems, fmt.Sprintf("invalid saturation range [%d,%d]", d.SatMin, d.SatMax))
	}
	if d.ValMin < 0 || d.ValMax > 255 || d.ValMin > d.ValMax {
		problems = append(problems, fmt.Sprintf("invalid value range [%d,%d]", d.ValMin, d.ValMax))
	}
	if d.JPEGQuality < 1 || d.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("JPEG_QUALITY out of range: %d", d.JPEGQuality))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func defaultModel(backend string) string {
	if backend == "gemini" {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: expected integer, got %q", key, value)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: expected boolean, got %q", key, value)
		}
		return boolValue, nil
	}
	return defaultValue, nil
}

// getEnvAsDuration accepts Go durations ("1.5s") or plain seconds ("20").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: expected duration, got %q", key, value)
	}
	return d, nil
}
