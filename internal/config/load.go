package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"m365console/internal/common/errs"
	"m365console/internal/common/validation"
)

// LoadOptions selects the config file and command line overrides.
type LoadOptions struct {
	// ConfigFile overrides <RootDir>/config/console.yaml.
	ConfigFile string
	// RootDir overrides the rootDir setting.
	RootDir string
	// Overrides are applied last, keyed by setting name (e.g. LOG_LEVEL).
	Overrides map[string]any
}

func setDefaults(options *viper.Viper) {
	d := NewConfig()
	options.SetDefault(MAX_RETRIES, d.MaxRetries)
	options.SetDefault(RETRY_DELAY_SECONDS, d.RetryDelaySeconds)
	options.SetDefault(NETWORK_RETRY_DELAY_SECONDS, d.NetworkRetryDelaySeconds)
	options.SetDefault(MAX_RETRY_DELAY_SECONDS, d.MaxRetryDelaySeconds)
	options.SetDefault(TIMEOUT_MINUTES, d.TimeoutMinutes)
	options.SetDefault(MONITORING_INTERVAL, d.MonitoringInterval.String())
	options.SetDefault(STANDARD_THRESHOLD, d.StandardThreshold)
	options.SetDefault(DEEP_THRESHOLD, d.DeepThreshold)
	options.SetDefault(MAX_REPAIR_ATTEMPTS, d.MaxRepairAttempts)
	options.SetDefault(ROOT_DIR, d.RootDir)
	options.SetDefault(REPORT_SUBDIRS, d.ReportSubdirs)
	options.SetDefault(IMAP_HOST, d.ImapHost)
	options.SetDefault(AUTH_RATE_LIMIT, 0.0)
	options.SetDefault(LOG_LEVEL, d.LogLevel)
	options.SetDefault(LOG_FORMAT, d.LogFormat)
	options.SetDefault(AUDIT_FORMAT, d.AuditFormat)

	// Keys without a default still need binding so AutomaticEnv sees them.
	for _, key := range []string{TENANT_ID, CLIENT_ID, CLIENT_SECRET, CERTIFICATE_THUMBPRINT,
		CERTIFICATE_PATH, CERTIFICATE_PASSWORD, REQUIRED_COMMANDS, IMAP_MAILBOX, METRICS_ADDR} {
		_ = options.BindEnv(key)
	}
}

// Load reads settings from defaults, the config file, CONSOLE_* environment
// variables and overrides, in increasing priority. A missing or malformed
// config file is not an error: it is recorded in Config.Warnings so the
// fault monitor can report and repair it. Validation failures are returned
// as errs.KindConfig errors.
func Load(opts LoadOptions) (*Config, error) {
	options := viper.New()
	options.SetEnvPrefix(ENV_PREFIX)
	options.AutomaticEnv()
	setDefaults(options)

	if opts.RootDir != "" {
		options.Set(ROOT_DIR, opts.RootDir)
	}
	rootDir := options.GetString(ROOT_DIR)

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = DefaultConfigPath(rootDir)
	}
	options.SetConfigFile(configFile)
	options.SetConfigType("yaml")

	var warnings []string
	if err := options.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("config file %s not found, using defaults", configFile))
		} else {
			warnings = append(warnings, fmt.Sprintf("config file %s is malformed, using defaults: %v", configFile, err))
		}
	}

	for key, value := range opts.Overrides {
		options.Set(key, value)
	}
	// The file may not move the root out from under an explicit flag.
	if opts.RootDir != "" {
		options.Set(ROOT_DIR, opts.RootDir)
	}

	cfg := &Config{
		TenantID:                 options.GetString(TENANT_ID),
		ClientID:                 options.GetString(CLIENT_ID),
		ClientSecret:             options.GetString(CLIENT_SECRET),
		CertificateThumbprint:    options.GetString(CERTIFICATE_THUMBPRINT),
		CertificatePath:          options.GetString(CERTIFICATE_PATH),
		CertificatePassword:      options.GetString(CERTIFICATE_PASSWORD),
		MaxRetries:               options.GetInt(MAX_RETRIES),
		RetryDelaySeconds:        options.GetInt(RETRY_DELAY_SECONDS),
		NetworkRetryDelaySeconds: options.GetInt(NETWORK_RETRY_DELAY_SECONDS),
		MaxRetryDelaySeconds:     options.GetInt(MAX_RETRY_DELAY_SECONDS),
		TimeoutMinutes:           options.GetInt(TIMEOUT_MINUTES),
		MonitoringInterval:       durationSetting(options, MONITORING_INTERVAL),
		StandardThreshold:        options.GetInt(STANDARD_THRESHOLD),
		DeepThreshold:            options.GetInt(DEEP_THRESHOLD),
		MaxRepairAttempts:        options.GetInt(MAX_REPAIR_ATTEMPTS),
		RootDir:                  options.GetString(ROOT_DIR),
		RequiredCommands:         options.GetStringSlice(REQUIRED_COMMANDS),
		ReportSubdirs:            options.GetStringSlice(REPORT_SUBDIRS),
		ImapMailbox:              options.GetString(IMAP_MAILBOX),
		ImapHost:                 options.GetString(IMAP_HOST),
		AuthRateLimit:            options.GetFloat64(AUTH_RATE_LIMIT),
		LogLevel:                 options.GetString(LOG_LEVEL),
		LogFormat:                options.GetString(LOG_FORMAT),
		AuditFormat:              options.GetString(AUDIT_FORMAT),
		MetricsAddr:              options.GetString(METRICS_ADDR),
		ConfigFile:               configFile,
		Warnings:                 warnings,
	}
	normalize(cfg)
	if abs, err := filepath.Abs(cfg.RootDir); err == nil {
		cfg.RootDir = abs
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize applies the case and whitespace rules shared by Load and Parse.
func normalize(cfg *Config) {
	cfg.TenantID = strings.TrimSpace(cfg.TenantID)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ImapMailbox = strings.TrimSpace(cfg.ImapMailbox)
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.AuditFormat = strings.ToLower(cfg.AuditFormat)
}

// durationSetting accepts Go duration strings ("90s") and bare integers,
// which are read as seconds.
func durationSetting(options *viper.Viper, key string) time.Duration {
	switch v := options.Get(key).(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return options.GetDuration(key)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and identifier formats.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errs.Config("config.validate", "invalid %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return errs.Config("config.validate", "%v", err)
	}

	if cfg.TenantID != "" {
		if err := validation.ValidateGUID(cfg.TenantID, TENANT_ID); err != nil {
			return errs.Config("config.validate", "%v", err)
		}
	}
	if cfg.ClientID != "" {
		if err := validation.ValidateGUID(cfg.ClientID, CLIENT_ID); err != nil {
			return errs.Config("config.validate", "%v", err)
		}
	}
	return nil
}
