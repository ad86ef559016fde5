package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{
		Account: Account{
			Email:       "me@example.com",
			AppPassword: "abcd efgh ijkl mnop",
			IMAPServer:  "imap.gmail.com",
			IMAPPort:    993,
		},
		Delivery: Delivery{
			Provider: "smtp",
			From:     "me@example.com",
			SMTP: SMTPConfig{
				Host:     "smtp.gmail.com",
				Port:     465,
				Username: "me@example.com",
				Password: "abcd efgh ijkl mnop",
				UseTLS:   true,
			},
		},
		Organization: Organization{Name: "SmartBrew", Website: "https://smartbrew.example"},
		Options:      Options{Template: "intro", MaxEmails: 100},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: got %04o, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Account.Email != "me@example.com" {
		t.Errorf("email: got %q", loaded.Account.Email)
	}
	if !loaded.Delivery.SMTP.UseTLS {
		t.Error("use_tls lost in roundtrip")
	}
	if loaded.Options.Template != "intro" {
		t.Errorf("template: got %q", loaded.Options.Template)
	}
	if loaded.Organization.Name != "SmartBrew" {
		t.Errorf("organization: got %q", loaded.Organization.Name)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	minimal := "account:\n  email: me@example.com\n  app_password: secret\n"
	if err := os.WriteFile(path, []byte(minimal), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Options.Template != "generic" {
		t.Errorf("template default: got %q", cfg.Options.Template)
	}
	if cfg.Options.MaxEmails != 3000 {
		t.Errorf("max emails default: got %d", cfg.Options.MaxEmails)
	}
	if cfg.Account.IMAPServer != "imap.gmail.com" {
		t.Errorf("imap server default: got %q", cfg.Account.IMAPServer)
	}
	if cfg.Account.IMAPPort != 993 {
		t.Errorf("imap port default: got %d", cfg.Account.IMAPPort)
	}
	if cfg.Delivery.From != "me@example.com" {
		t.Errorf("from should default to account email: got %q", cfg.Delivery.From)
	}
	if cfg.RosterPath == "" {
		t.Error("roster path default missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateAccount(t *testing.T) {
	valid := Account{
		Email:       "me@example.com",
		AppPassword: "secret",
		IMAPServer:  "imap.gmail.com",
		IMAPPort:    993,
	}

	tests := []struct {
		name    string
		mutate  func(*Account)
		wantErr string
	}{
		{"valid", func(a *Account) {}, ""},
		{"no email", func(a *Account) { a.Email = "" }, "email is required"},
		{"no password", func(a *Account) { a.AppPassword = "" }, "app_password is required"},
		{"no server", func(a *Account) { a.IMAPServer = "" }, "imap_server is required"},
		{"no port", func(a *Account) { a.IMAPPort = 0 }, "imap_port is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := valid
			tt.mutate(&account)
			cfg := &Config{Account: account}

			err := cfg.ValidateAccount()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDelivery(t *testing.T) {
	tests := []struct {
		name     string
		delivery Delivery
		wantErr  string
	}{
		{
			name: "valid smtp",
			delivery: Delivery{
				From: "me@example.com",
				SMTP: SMTPConfig{Host: "smtp.gmail.com", Port: 465},
			},
		},
		{
			name:     "valid sendgrid",
			delivery: Delivery{Provider: "sendgrid", From: "me@example.com", APIKey: "SG.key"},
		},
		{
			name:     "valid resend",
			delivery: Delivery{Provider: "resend", From: "me@example.com", APIKey: "re_key"},
		},
		{
			name:     "no from",
			delivery: Delivery{Provider: "smtp"},
			wantErr:  "from address is required",
		},
		{
			name:     "smtp without host",
			delivery: Delivery{Provider: "smtp", From: "me@example.com", SMTP: SMTPConfig{Port: 465}},
			wantErr:  "host is required",
		},
		{
			name:     "smtp without port",
			delivery: Delivery{From: "me@example.com", SMTP: SMTPConfig{Host: "smtp.gmail.com"}},
			wantErr:  "port is required",
		},
		{
			name:     "sendgrid without key",
			delivery: Delivery{Provider: "sendgrid", From: "me@example.com"},
			wantErr:  "api_key is required for sendgrid",
		},
		{
			name:     "unknown provider",
			delivery: Delivery{Provider: "pigeon", From: "me@example.com"},
			wantErr:  `unknown provider "pigeon" (smtp, sendgrid, resend)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Delivery: tt.delivery}

			err := cfg.ValidateDelivery()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want %q", err, tt.wantErr)
			}
		})
	}
}
