package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"m365console/internal/common/errs"
)

const documentHeader = "# consolectl configuration\n# Secrets may be given as env:NAME or file:PATH references.\n"

// Render produces the known-good config document for cfg. Runtime-only
// fields (RootDir, ConfigFile, Warnings) are not written, and literal
// secrets are dropped: only env: and file: references survive a rewrite.
func Render(cfg *Config) ([]byte, error) {
	doc := *cfg
	doc.ClientSecret = referenceOnly(doc.ClientSecret)
	doc.CertificatePassword = referenceOnly(doc.CertificatePassword)

	var buf bytes.Buffer
	buf.WriteString(documentHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a config document on top of the defaults and normalizes it
// the way Load does: keys match case-insensitively, a bare number for
// monitoringInterval counts seconds, and level and format names are folded.
// The document must be a YAML mapping; anything else (empty file, scalar,
// list) is reported as an integrity error.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errs.Integrity("config-file", fmt.Sprintf("invalid YAML: %v", err))
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errs.Integrity("config-file", "document is empty")
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, errs.Integrity("config-file", "document is not a mapping")
	}

	mapping := root.Content[0]
	canonicalKeys(mapping)

	cfg := NewConfig()
	if err := mapping.Decode(cfg); err != nil {
		return nil, errs.Integrity("config-file", fmt.Sprintf("invalid value: %v", err))
	}
	normalize(cfg)
	return cfg, nil
}

var settingKeys = []string{
	TENANT_ID, CLIENT_ID, CLIENT_SECRET, CERTIFICATE_THUMBPRINT, CERTIFICATE_PATH,
	CERTIFICATE_PASSWORD, MAX_RETRIES, RETRY_DELAY_SECONDS, NETWORK_RETRY_DELAY_SECONDS,
	MAX_RETRY_DELAY_SECONDS, TIMEOUT_MINUTES, MONITORING_INTERVAL, STANDARD_THRESHOLD,
	DEEP_THRESHOLD, MAX_REPAIR_ATTEMPTS, ROOT_DIR, REQUIRED_COMMANDS, REPORT_SUBDIRS,
	IMAP_MAILBOX, IMAP_HOST, AUTH_RATE_LIMIT, LOG_LEVEL, LOG_FORMAT, AUDIT_FORMAT, METRICS_ADDR,
}

// canonicalKeys rewrites mapping keys to their setting names and turns a
// numeric monitoringInterval into a duration string.
func canonicalKeys(mapping *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		for _, name := range settingKeys {
			if strings.EqualFold(key.Value, name) {
				key.Value = name
				break
			}
		}
		if key.Value != MONITORING_INTERVAL || value.Kind != yaml.ScalarNode {
			continue
		}
		if tag := value.ShortTag(); tag != "!!int" && tag != "!!float" {
			continue
		}
		if secs, err := strconv.ParseFloat(value.Value, 64); err == nil {
			value.Value = time.Duration(secs * float64(time.Second)).String()
			value.Tag = "!!str"
		}
	}
}

func referenceOnly(secret string) string {
	if strings.HasPrefix(secret, "env:") || strings.HasPrefix(secret, "file:") {
		return secret
	}
	return ""
}
