package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Executive is one campaign signatory: outreach goes out under their name
// and their address is cc'd so the matcher can attribute replies.
type Executive struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Phone  string `yaml:"phone,omitempty"`
	Gender string `yaml:"gender,omitempty"` // "male", "female", or empty
}

type Roster struct {
	Executives []Executive `yaml:"executives"`
}

func LoadFromFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	return &r, nil
}

func (r *Roster) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize roster: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// SaveWithBackup saves the roster to file, creating a backup first
func (r *Roster) SaveWithBackup(path string) error {
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file for backup: %w", err)
		}
		backupPath := path + ".bak"
		if err := os.WriteFile(backupPath, data, 0644); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	return r.Save(path)
}

// FindByEmail finds an executive by address, case-insensitively.
func (r *Roster) FindByEmail(email string) *Executive {
	email = strings.ToLower(email)
	for i := range r.Executives {
		if strings.ToLower(r.Executives[i].Email) == email {
			return &r.Executives[i]
		}
	}
	return nil
}

func (r *Roster) FindByName(name string) *Executive {
	name = strings.ToLower(name)
	for i := range r.Executives {
		if strings.ToLower(r.Executives[i].Name) == name {
			return &r.Executives[i]
		}
	}
	return nil
}

func (r *Roster) Add(exec Executive) error {
	if exec.Email == "" {
		return fmt.Errorf("executive email is required")
	}
	if r.FindByEmail(exec.Email) != nil {
		return fmt.Errorf("executive with email %q already exists", exec.Email)
	}
	r.Executives = append(r.Executives, exec)
	return nil
}

// RemoveByEmail removes an executive by address.
// Returns the removed executive, or nil if not found
func (r *Roster) RemoveByEmail(email string) *Executive {
	email = strings.ToLower(email)
	for i := range r.Executives {
		if strings.ToLower(r.Executives[i].Email) == email {
			removed := r.Executives[i]
			r.Executives = append(r.Executives[:i], r.Executives[i+1:]...)
			return &removed
		}
	}
	return nil
}
