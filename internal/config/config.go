package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 25 * 1024 * 1024 // 25MB
	DefaultEndorserID  = "WEB-UTIL-001"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the bill endorsement service. It is
// constructed once at process start and never mutated afterwards; every
// component receives it (or the fields it needs) explicitly.
type Config struct {
	// Server configuration
	Host string
	Port int

	// Pipeline configuration
	UploadsDir        string
	RemedyLogDir      string
	OverlayConfigPath string
	PrivateKeyPath    string
	PrivateKeyPEM     string // inline PEM, env only; takes precedence over the path
	EndorserID        string
	OCREnabled        bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		UploadsDir:        filepath.Join(currentDir, "uploads"),
		RemedyLogDir:      filepath.Join(currentDir, "remedy_logs"),
		OverlayConfigPath: filepath.Join(currentDir, "config", "sovereign_overlay.yaml"),
		PrivateKeyPath:    "",
		EndorserID:        DefaultEndorserID,
		OCREnabled:        true,
		Version:           "1.0.0",
		ServerName:        "bill-endorser",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand directory paths if needed
	for _, p := range []*string{&cfg.UploadsDir, &cfg.RemedyLogDir} {
		if *p != "" {
			if expandedPath, err := filepath.Abs(*p); err == nil {
				*p = expandedPath
			}
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("BILL_ENDORSER")
	viper.AutomaticEnv()

	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("uploads_dir", cfg.UploadsDir)
	viper.SetDefault("remedy_log_dir", cfg.RemedyLogDir)
	viper.SetDefault("overlay_config", cfg.OverlayConfigPath)
	viper.SetDefault("private_key", cfg.PrivateKeyPath)
	viper.SetDefault("private_key_pem", "")
	viper.SetDefault("endorser_id", cfg.EndorserID)
	viper.SetDefault("ocr", cfg.OCREnabled)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("uploads-dir", cfg.UploadsDir, "Directory where uploaded and endorsed PDFs are written")
	pflag.String("remedy-log-dir", cfg.RemedyLogDir, "Directory where remedy log pairs are written")
	pflag.String("overlay-config", cfg.OverlayConfigPath, "Path to the sovereign overlay rules file (YAML)")
	pflag.String("private-key", cfg.PrivateKeyPath, "Path to the RSA private key (PEM)")
	pflag.String("endorser-id", cfg.EndorserID, "Identifier recorded on every endorsement")
	pflag.Bool("ocr", cfg.OCREnabled, "Enable OCR fallback when direct text extraction yields nothing")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("uploads_dir", pflag.Lookup("uploads-dir"))
	_ = viper.BindPFlag("remedy_log_dir", pflag.Lookup("remedy-log-dir"))
	_ = viper.BindPFlag("overlay_config", pflag.Lookup("overlay-config"))
	_ = viper.BindPFlag("private_key", pflag.Lookup("private-key"))
	_ = viper.BindPFlag("endorser_id", pflag.Lookup("endorser-id"))
	_ = viper.BindPFlag("ocr", pflag.Lookup("ocr"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nBill Endorser - a web backend for parsing, endorsing and stamping bill PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # defaults, key from env\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --private-key=/etc/keys/endorser.pem     # key from file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=8081               # listen on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_HOST             Server host\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_PORT             Server port\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_UPLOADS_DIR      Uploads directory\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_REMEDY_LOG_DIR   Remedy log directory\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_OVERLAY_CONFIG   Overlay rules file path\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_PRIVATE_KEY      RSA private key path\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_PRIVATE_KEY_PEM  RSA private key, inline PEM\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_ENDORSER_ID      Endorser identifier\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_LOGLEVEL         Log level\n")
		fmt.Fprintf(os.Stderr, "  BILL_ENDORSER_MAXFILESIZE      Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadsDir = viper.GetString("uploads_dir")
	cfg.RemedyLogDir = viper.GetString("remedy_log_dir")
	cfg.OverlayConfigPath = viper.GetString("overlay_config")
	cfg.PrivateKeyPath = viper.GetString("private_key")
	cfg.PrivateKeyPEM = viper.GetString("private_key_pem")
	cfg.EndorserID = viper.GetString("endorser_id")
	cfg.OCREnabled = viper.GetBool("ocr")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if c.UploadsDir == "" {
		return errors.New("uploads directory cannot be empty")
	}
	if c.RemedyLogDir == "" {
		return errors.New("remedy log directory cannot be empty")
	}

	// Create working directories if they don't exist
	for _, dir := range []string{c.UploadsDir, c.RemedyLogDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	if c.EndorserID == "" {
		return errors.New("endorser id cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// PrivateKey returns the configured PEM key material, preferring the inline
// value over the key file. Returns an empty string when no key is configured;
// callers surface that as a configuration error at signing time.
func (c *Config) PrivateKey() (string, error) {
	if c.PrivateKeyPEM != "" {
		return c.PrivateKeyPEM, nil
	}
	if c.PrivateKeyPath == "" {
		return "", nil
	}
	pem, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return "", fmt.Errorf("cannot read private key %s: %w", c.PrivateKeyPath, err)
	}
	return string(pem), nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. The private
// key material is deliberately omitted.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Host: %s, Port: %d, UploadsDir: %s, RemedyLogDir: %s, OverlayConfig: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Host, c.Port, c.UploadsDir, c.RemedyLogDir, c.OverlayConfigPath, c.LogLevel, c.MaxFileSize)
}
