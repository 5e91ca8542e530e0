// Package config loads consolectl settings from the YAML config file,
// CONSOLE_* environment variables and command line overrides, and renders
// the minimal known-good config document used by the repair tiers.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"m365console/internal/common/security"
)

const (
	ENV_PREFIX = "CONSOLE"

	TENANT_ID                   = "tenantId"
	CLIENT_ID                   = "clientId"
	CLIENT_SECRET               = "clientSecret"
	CERTIFICATE_THUMBPRINT      = "certificateThumbprint"
	CERTIFICATE_PATH            = "certificatePath"
	CERTIFICATE_PASSWORD        = "certificatePassword"
	MAX_RETRIES                 = "maxRetries"
	RETRY_DELAY_SECONDS         = "retryDelaySeconds"
	NETWORK_RETRY_DELAY_SECONDS = "networkRetryDelaySeconds"
	MAX_RETRY_DELAY_SECONDS     = "maxRetryDelaySeconds"
	TIMEOUT_MINUTES             = "timeoutMinutes"
	MONITORING_INTERVAL         = "monitoringInterval"
	STANDARD_THRESHOLD          = "standardThreshold"
	DEEP_THRESHOLD              = "deepThreshold"
	MAX_REPAIR_ATTEMPTS         = "maxRepairAttempts"
	ROOT_DIR                    = "rootDir"
	REQUIRED_COMMANDS           = "requiredCommands"
	REPORT_SUBDIRS              = "reportSubdirs"
	IMAP_MAILBOX                = "imapMailbox"
	IMAP_HOST                   = "imapHost"
	AUTH_RATE_LIMIT             = "authRateLimit"
	LOG_LEVEL                   = "logLevel"
	LOG_FORMAT                  = "logFormat"
	AUDIT_FORMAT                = "auditFormat"
	METRICS_ADDR                = "metricsAddr"

	// ConfigFileName is the config document inside <rootDir>/config.
	ConfigFileName = "console.yaml"
)

// DefaultReportSubdirs are the report folders expected under reports/.
var DefaultReportSubdirs = []string{"daily", "weekly", "monthly", "archive"}

// Config holds all consolectl settings.
type Config struct {
	// Credentials
	TenantID              string `yaml:"tenantId,omitempty"`
	ClientID              string `yaml:"clientId,omitempty"`
	ClientSecret          string `yaml:"clientSecret,omitempty"`
	CertificateThumbprint string `yaml:"certificateThumbprint,omitempty"`
	CertificatePath       string `yaml:"certificatePath,omitempty"`
	CertificatePassword   string `yaml:"certificatePassword,omitempty"`

	// Retry policy
	MaxRetries               int `yaml:"maxRetries" validate:"gte=1,lte=20"`
	RetryDelaySeconds        int `yaml:"retryDelaySeconds" validate:"gte=0"`
	NetworkRetryDelaySeconds int `yaml:"networkRetryDelaySeconds" validate:"gte=0"`
	MaxRetryDelaySeconds     int `yaml:"maxRetryDelaySeconds" validate:"gte=0"`
	TimeoutMinutes           int `yaml:"timeoutMinutes" validate:"gte=1"`

	// Escalation
	MonitoringInterval time.Duration `yaml:"monitoringInterval" validate:"gte=1s"`
	StandardThreshold  int           `yaml:"standardThreshold" validate:"gte=1"`
	DeepThreshold      int           `yaml:"deepThreshold" validate:"gtefield=StandardThreshold"`
	MaxRepairAttempts  int           `yaml:"maxRepairAttempts" validate:"gte=1"`

	// Layout
	RootDir          string   `yaml:"-"`
	RequiredCommands []string `yaml:"requiredCommands,omitempty"`
	ReportSubdirs    []string `yaml:"reportSubdirs,omitempty" validate:"dive,required,excludes=/"`

	// Services
	ImapMailbox   string  `yaml:"imapMailbox,omitempty" validate:"omitempty,email"`
	ImapHost      string  `yaml:"imapHost,omitempty" validate:"omitempty,hostname"`
	AuthRateLimit float64 `yaml:"authRateLimit,omitempty" validate:"gte=0"`

	// Runtime
	LogLevel    string `yaml:"logLevel,omitempty" validate:"oneof=DEBUG INFO WARN WARNING ERROR"`
	LogFormat   string `yaml:"logFormat,omitempty" validate:"oneof=text json"`
	AuditFormat string `yaml:"auditFormat,omitempty" validate:"oneof=csv json"`
	MetricsAddr string `yaml:"metricsAddr,omitempty" validate:"omitempty,hostname_port"`

	// ConfigFile is where the document was (or would be) read from.
	ConfigFile string `yaml:"-"`
	// Warnings collects non-fatal load problems, e.g. a missing or malformed file.
	Warnings []string `yaml:"-"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxRetries:               7,
		RetryDelaySeconds:        5,
		NetworkRetryDelaySeconds: 15,
		MaxRetryDelaySeconds:     300,
		TimeoutMinutes:           5,
		MonitoringInterval:       60 * time.Second,
		StandardThreshold:        2,
		DeepThreshold:            3,
		MaxRepairAttempts:        7,
		RootDir:                  ".",
		ReportSubdirs:            append([]string(nil), DefaultReportSubdirs...),
		ImapHost:                 "outlook.office365.com",
		LogLevel:                 "INFO",
		LogFormat:                "text",
		AuditFormat:              "csv",
	}
}

// RetryDelay is the default base delay of the retry policy.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// NetworkRetryDelay is the base delay once a failure is classified as network.
func (c *Config) NetworkRetryDelay() time.Duration {
	return time.Duration(c.NetworkRetryDelaySeconds) * time.Second
}

// MaxRetryDelay clamps the exponential backoff.
func (c *Config) MaxRetryDelay() time.Duration {
	return time.Duration(c.MaxRetryDelaySeconds) * time.Second
}

// Timeout bounds a single Connect.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// DefaultConfigPath returns <rootDir>/config/console.yaml.
func DefaultConfigPath(rootDir string) string {
	return filepath.Join(rootDir, "config", ConfigFileName)
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", TENANT_ID, security.MaskGUID(c.TenantID))
	fmt.Fprintf(&b, "%s: %s\n", CLIENT_ID, security.MaskGUID(c.ClientID))
	fmt.Fprintf(&b, "%s: %s\n", CLIENT_SECRET, security.MaskSecret(c.ClientSecret))
	fmt.Fprintf(&b, "%s: %s\n", CERTIFICATE_THUMBPRINT, security.MaskThumbprint(c.CertificateThumbprint))
	fmt.Fprintf(&b, "%s: %s\n", CERTIFICATE_PATH, c.CertificatePath)
	fmt.Fprintf(&b, "%s: %d\n", MAX_RETRIES, c.MaxRetries)
	fmt.Fprintf(&b, "%s: %d\n", RETRY_DELAY_SECONDS, c.RetryDelaySeconds)
	fmt.Fprintf(&b, "%s: %d\n", NETWORK_RETRY_DELAY_SECONDS, c.NetworkRetryDelaySeconds)
	fmt.Fprintf(&b, "%s: %d\n", TIMEOUT_MINUTES, c.TimeoutMinutes)
	fmt.Fprintf(&b, "%s: %s\n", MONITORING_INTERVAL, c.MonitoringInterval)
	fmt.Fprintf(&b, "%s: %d\n", STANDARD_THRESHOLD, c.StandardThreshold)
	fmt.Fprintf(&b, "%s: %d\n", DEEP_THRESHOLD, c.DeepThreshold)
	fmt.Fprintf(&b, "%s: %d\n", MAX_REPAIR_ATTEMPTS, c.MaxRepairAttempts)
	fmt.Fprintf(&b, "%s: %s\n", ROOT_DIR, c.RootDir)
	fmt.Fprintf(&b, "%s: %s\n", IMAP_MAILBOX, security.MaskEmail(c.ImapMailbox))
	return b.String()
}
