package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/kwhledger/internal/backend/archive"
	"github.com/jo-hoe/kwhledger/internal/backend/imaging"
	"github.com/jo-hoe/kwhledger/internal/common"
)

const (
	ValueScopePeriod = "period"
	ValueScopeAll    = "all"
)

type Database struct {
	Type             string `yaml:"type" validate:"required,oneof=sqlite postgres redis"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
}

// Access holds caller identities. An empty allow-list admits everybody.
type Access struct {
	AdminPhone      string   `yaml:"adminPhone"`
	AdminEntryPhone string   `yaml:"adminEntryPhone"`
	AllowList       []string `yaml:"allowList"`
}

type OCR struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Media struct {
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
	MaxBytes int64         `yaml:"maxBytes" validate:"min=0"`
}

type Duplicates struct {
	ValueScope string `yaml:"valueScope" validate:"oneof=period all"`
}

type S3Backup struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type Backup struct {
	Path string   `yaml:"path" validate:"required"`
	S3   S3Backup `yaml:"s3"`
}

type Twilio struct {
	AccountSID string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	From       string `yaml:"from"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Notifier struct {
	Type  string `yaml:"type" validate:"oneof=log twilio kafka"`
	Kafka Kafka  `yaml:"kafka"`
}

// Webhook controls verification of inbound transport requests.
type Webhook struct {
	ValidateSignature bool   `yaml:"validateSignature"`
	PublicURL         string `yaml:"publicUrl"`
}

type ServiceConfig struct {
	Port       int        `yaml:"port" validate:"min=0,max=65535"`
	Timezone   string     `yaml:"timezone"`
	Database   Database   `yaml:"database"`
	Access     Access     `yaml:"access"`
	OCR        OCR        `yaml:"ocr"`
	Media      Media      `yaml:"media"`
	Duplicates Duplicates `yaml:"duplicates"`
	Backup     Backup     `yaml:"backup"`
	Twilio     Twilio     `yaml:"twilio"`
	Notifier   Notifier   `yaml:"notifier"`
	Webhook    Webhook    `yaml:"webhook"`
}

// LoadConfig loads configuration from the specified YAML file. ${VAR}
// references are expanded from the environment before parsing.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return config, nil
}

// ParseConfig parses, defaults and validates raw YAML.
func ParseConfig(data []byte) (*ServiceConfig, error) {
	var config ServiceConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.normalizePhones()
	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" && c.Database.Type == "sqlite" {
		c.Database.ConnectionString = filepath.Join("data", "ledger.db")
	}
	if c.OCR.Command == "" {
		c.OCR.Command = "tesseract"
	}
	if c.Media.Timeout == 0 {
		c.Media.Timeout = 30 * time.Second
	}
	if c.Media.MaxBytes == 0 {
		c.Media.MaxBytes = imaging.DefaultMaxImageBytes
	}
	if c.Duplicates.ValueScope == "" {
		c.Duplicates.ValueScope = ValueScopePeriod
	}
	if c.Backup.Path == "" {
		c.Backup.Path = filepath.Join("data", "backups", archive.DefaultFileName)
	}
	if c.Notifier.Type == "" {
		c.Notifier.Type = "log"
	}
}

// validate checks constraints that span several fields.
func (c *ServiceConfig) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	if c.Access.AdminPhone != "" && c.Access.AdminEntryPhone == "" {
		return fmt.Errorf("access.adminEntryPhone is required when access.adminPhone is set")
	}
	switch c.Notifier.Type {
	case "twilio":
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.From == "" {
			return fmt.Errorf("twilio notifier requires twilio.accountSid, twilio.authToken and twilio.from")
		}
		if c.Access.AdminPhone == "" {
			return fmt.Errorf("twilio notifier requires access.adminPhone")
		}
	case "kafka":
		if len(c.Notifier.Kafka.Brokers) == 0 || c.Notifier.Kafka.Topic == "" {
			return fmt.Errorf("kafka notifier requires notifier.kafka.brokers and notifier.kafka.topic")
		}
	}
	if c.Webhook.ValidateSignature && (c.Twilio.AuthToken == "" || c.Webhook.PublicURL == "") {
		return fmt.Errorf("webhook signature validation requires twilio.authToken and webhook.publicUrl")
	}
	if c.Backup.S3.Bucket != "" && c.Backup.S3.Region == "" {
		return fmt.Errorf("backup.s3.region is required when backup.s3.bucket is set")
	}
	return nil
}

func (c *ServiceConfig) normalizePhones() {
	if c.Access.AdminPhone != "" {
		c.Access.AdminPhone = common.NormalizePhone(c.Access.AdminPhone)
	}
	if c.Access.AdminEntryPhone != "" {
		c.Access.AdminEntryPhone = common.NormalizePhone(c.Access.AdminEntryPhone)
	}
	for i, phone := range c.Access.AllowList {
		c.Access.AllowList[i] = common.NormalizePhone(phone)
	}
}

// Location returns the configured billing timezone.
func (c *ServiceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
