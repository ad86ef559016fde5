package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const defaultMaxEmails = 3000

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	Account      Account      `yaml:"account"`
	Delivery     Delivery     `yaml:"delivery"`
	Organization Organization `yaml:"organization,omitempty"`
	Options      Options      `yaml:"options"`
	RosterPath   string       `yaml:"roster,omitempty"`
}

// Account holds IMAP settings for the mailbox campaigns are analyzed in.
// The password is an app-specific password, not the account's main one.
type Account struct {
	Email       string `yaml:"email"`
	AppPassword string `yaml:"app_password"`
	IMAPServer  string `yaml:"imap_server"` // e.g., "imap.gmail.com"
	IMAPPort    int    `yaml:"imap_port"`   // e.g., 993
}

// Delivery selects the outbound provider used by the send command.
type Delivery struct {
	Provider string     `yaml:"provider"` // "smtp", "sendgrid", "resend"
	From     string     `yaml:"from"`
	APIKey   string     `yaml:"api_key,omitempty"` // sendgrid/resend only
	SMTP     SMTPConfig `yaml:"smtp,omitempty"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// Organization is rendered into the footer of every outreach message.
type Organization struct {
	Name         string `yaml:"name"`
	About        string `yaml:"about,omitempty"`
	Website      string `yaml:"website,omitempty"`
	Registration string `yaml:"registration,omitempty"`
}

type Options struct {
	Template  string `yaml:"template"`
	DryRun    bool   `yaml:"dry_run"`
	MaxEmails int    `yaml:"max_emails"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".outreach", "config.yaml")
}

func DefaultRosterPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "executives.yaml"
	}
	return filepath.Join(home, ".outreach", "executives.yaml")
}

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Options.Template == "" {
		cfg.Options.Template = "generic"
	}
	if cfg.Options.MaxEmails == 0 {
		cfg.Options.MaxEmails = defaultMaxEmails
	}

	// Account defaults assume Gmail, the common case for app passwords.
	if cfg.Account.IMAPServer == "" {
		cfg.Account.IMAPServer = "imap.gmail.com"
	}
	if cfg.Account.IMAPPort == 0 {
		cfg.Account.IMAPPort = 993
	}
	if cfg.Delivery.From == "" {
		cfg.Delivery.From = cfg.Account.Email
	}
	if cfg.RosterPath == "" {
		cfg.RosterPath = DefaultRosterPath()
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// ValidateAccount checks the fields needed for extraction and matching.
func (c *Config) ValidateAccount() error {
	if c.Account.Email == "" {
		return fmt.Errorf("account: email is required")
	}
	if c.Account.AppPassword == "" {
		return fmt.Errorf("account: app_password is required")
	}
	if c.Account.IMAPServer == "" {
		return fmt.Errorf("account: imap_server is required")
	}
	if c.Account.IMAPPort == 0 {
		return fmt.Errorf("account: imap_port is required")
	}
	return nil
}

// ValidateDelivery checks the fields needed for sending.
func (c *Config) ValidateDelivery() error {
	if c.Delivery.From == "" {
		return fmt.Errorf("delivery: from address is required")
	}
	switch c.Delivery.Provider {
	case "", "smtp":
		if c.Delivery.SMTP.Host == "" {
			return fmt.Errorf("delivery.smtp: host is required")
		}
		if c.Delivery.SMTP.Port == 0 {
			return fmt.Errorf("delivery.smtp: port is required")
		}
	case "sendgrid", "resend":
		if c.Delivery.APIKey == "" {
			return fmt.Errorf("delivery: api_key is required for %s", c.Delivery.Provider)
		}
	default:
		return fmt.Errorf("delivery: unknown provider %q (smtp, sendgrid, resend)", c.Delivery.Provider)
	}
	return nil
}
