package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-cli/internal/weather"
)

// ErrInvalidAlias is returned when an alias name or address fails validation.
var ErrInvalidAlias = errors.New("invalid alias")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

// AliasStore maps alias names to addresses. Names are matched case-insensitively and
// stored lowercased; at most one alias is the default.
type AliasStore struct {
	aliases []weather.Alias
}

// NewAliasStore creates a store from persisted entries.
func NewAliasStore(list []weather.Alias) *AliasStore {
	s := &AliasStore{aliases: make([]weather.Alias, 0, len(list))}
	for _, a := range list {
		a.Name = strings.ToLower(a.Name)
		s.aliases = append(s.aliases, a)
	}
	return s
}

// List returns a copy of the aliases in insertion order.
func (s *AliasStore) List() []weather.Alias {
	return append([]weather.Alias(nil), s.aliases...)
}

// Get looks up an alias by name.
func (s *AliasStore) Get(name string) (weather.Alias, bool) {
	if i := s.index(name); i >= 0 {
		return s.aliases[i], true
	}
	return weather.Alias{}, false
}

// Default returns the default alias, if any.
func (s *AliasStore) Default() (weather.Alias, bool) {
	for _, a := range s.aliases {
		if a.IsDefault {
			return a, true
		}
	}
	return weather.Alias{}, false
}

// Set creates or updates an alias. The first alias added while no default exists
// becomes the default; the returned bool reports that.
func (s *AliasStore) Set(name, address string) (bool, error) {
	candidate := weather.Alias{
		Name:    strings.ToLower(strings.TrimSpace(name)),
		Address: strings.TrimSpace(address),
	}
	if err := validate.Struct(candidate); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidAlias, describeValidation(err))
	}

	if i := s.index(candidate.Name); i >= 0 {
		s.aliases[i].Address = candidate.Address
		return false, nil
	}

	if _, ok := s.Default(); !ok {
		candidate.IsDefault = true
	}
	s.aliases = append(s.aliases, candidate)
	return candidate.IsDefault, nil
}

// SetDefault makes name the only default alias.
func (s *AliasStore) SetDefault(name string) error {
	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", weather.ErrUnknownAlias, name)
	}
	for j := range s.aliases {
		s.aliases[j].IsDefault = j == i
	}
	return nil
}

// Remove deletes an alias and reports whether it was the default. Removing the default
// leaves the store without one.
func (s *AliasStore) Remove(name string) (bool, error) {
	i := s.index(name)
	if i < 0 {
		return false, fmt.Errorf("%w: %q", weather.ErrUnknownAlias, name)
	}
	wasDefault := s.aliases[i].IsDefault
	s.aliases = append(s.aliases[:i], s.aliases[i+1:]...)
	return wasDefault, nil
}

// Resolve turns a user token into an address. An empty token selects the default alias,
// a known alias name its address, and anything else is taken as a literal address.
// An unmatched token is returned exactly as given.
func (s *AliasStore) Resolve(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		a, ok := s.Default()
		if !ok {
			return "", weather.ErrNoDefaultAlias
		}
		return a.Address, nil
	}
	if a, ok := s.Get(token); ok {
		return a.Address, nil
	}
	return token, nil
}

func (s *AliasStore) index(name string) int {
	name = strings.TrimSpace(name)
	for i, a := range s.aliases {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" must not be empty")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "nowhitespace":
			msgs = append(msgs, field+" must not contain whitespace")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
