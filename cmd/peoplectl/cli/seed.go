package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/peopledesk/internal/roles"
	"github.com/odyssey-erp/peopledesk/internal/users"
)

// SeedFile is the YAML document accepted by `peoplectl seed`.
type SeedFile struct {
	Roles         []SeedRole `yaml:"roles"`
	EmployeeTypes []string   `yaml:"employee_types"`
	Users         []SeedUser `yaml:"users"`
}

// SeedRole declares a role and its description.
type SeedRole struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SeedUser declares a user. EmployeeType is a label from employee_types.
type SeedUser struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	Type         string `yaml:"type"`
	EmployeeType string `yaml:"employee_type"`
}

// ParseSeed decodes and checks a seed document.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *SeedFile) validate() error {
	for i, r := range s.Roles {
		if _, ok := roles.ParseName(r.Name); !ok {
			return fmt.Errorf("seed: role %d has unknown name %q", i, r.Name)
		}
	}
	types := make(map[string]bool, len(s.EmployeeTypes))
	for i, t := range s.EmployeeTypes {
		t = strings.TrimSpace(t)
		if t == "" {
			return fmt.Errorf("seed: employee type %d is empty", i)
		}
		types[t] = true
	}
	emails := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return fmt.Errorf("seed: user %d is missing an email", i)
		}
		if emails[email] {
			return fmt.Errorf("seed: user %d has duplicate email %s", i, email)
		}
		emails[email] = true
		if u.EmployeeType != "" && !types[strings.TrimSpace(u.EmployeeType)] {
			return fmt.Errorf("seed: user %s references undeclared employee type %q", email, u.EmployeeType)
		}
	}
	return nil
}

// SeedStore is what Apply writes through.
type SeedStore interface {
	EnsureRole(ctx context.Context, raw, description string) (roles.Role, error)
	EnsureEmployeeType(ctx context.Context, label string) (int64, error)
	CreateUser(ctx context.Context, caller users.User, req users.NewUserRequest) (*users.User, error)
}

// SeedResult counts what Apply did.
type SeedResult struct {
	Roles         int
	EmployeeTypes int
	Created       int
	Skipped       int
}

// Apply writes the seed through store. Users whose email already exists are skipped.
func (s *SeedFile) Apply(ctx context.Context, store SeedStore) (SeedResult, error) {
	var res SeedResult
	for _, r := range s.Roles {
		if _, err := store.EnsureRole(ctx, r.Name, r.Description); err != nil {
			return res, err
		}
		res.Roles++
	}
	typeIDs := make(map[string]int64, len(s.EmployeeTypes))
	for _, t := range s.EmployeeTypes {
		t = strings.TrimSpace(t)
		id, err := store.EnsureEmployeeType(ctx, t)
		if err != nil {
			return res, err
		}
		typeIDs[t] = id
		res.EmployeeTypes++
	}
	for _, u := range s.Users {
		req := users.NewUserRequest{Name: u.Name, Email: u.Email, Password: u.Password, Type: u.Type}
		if id, ok := typeIDs[strings.TrimSpace(u.EmployeeType)]; ok {
			req.EmployeeTypeID = &id
		}
		if _, err := store.CreateUser(ctx, operator, req); err != nil {
			if errors.Is(err, users.ErrCreation) && users.MessageKey(err) == users.KeyEmailTaken {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		res.Created++
	}
	return res, nil
}

type envSeedStore struct{ e *env }

func (s envSeedStore) EnsureRole(ctx context.Context, raw, description string) (roles.Role, error) {
	return s.e.services.Roles.EnsureRole(ctx, raw, description)
}

func (s envSeedStore) EnsureEmployeeType(ctx context.Context, label string) (int64, error) {
	return s.e.users.EnsureEmployeeType(ctx, label)
}

func (s envSeedStore) CreateUser(ctx context.Context, caller users.User, req users.NewUserRequest) (*users.User, error) {
	return s.e.services.Users.CreateUser(ctx, caller, req)
}

func newSeedCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load roles, employee types and users from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			seed, err := ParseSeed(f)
			if err != nil {
				return err
			}
			return withEnv(cmd, func(e *env) error {
				res, err := seed.Apply(cmd.Context(), envSeedStore{e: e})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "roles: %d, employee types: %d, users created: %d, skipped: %d\n",
					res.Roles, res.EmployeeTypes, res.Created, res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "seed file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
