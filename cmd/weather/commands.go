package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/i474232898/weather-cli/internal/common"
	"github.com/i474232898/weather-cli/internal/store"
	"github.com/i474232898/weather-cli/internal/weather"
)

func parseGet(fs *flag.FlagSet, args []string) (execFunc, error) {
	provider := fs.String("provider", "", "provider id or name (default: the default provider)")
	date := fs.String("date", "", "date for historical weather, e.g. 2024-05-01 (default: current)")
	asJSON := fs.Bool("json", false, "print the report as JSON")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) > 1 {
		return nil, fmt.Errorf("%w: get takes at most one location, quote addresses with spaces", errUsage)
	}
	token := ""
	if len(positional) == 1 {
		token = positional[0]
	}

	day, err := weather.ParseDate(*date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	return func(ctx context.Context, a *app) error {
		report, err := a.resolver.Get(ctx, token, *provider, day)
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		renderReport(a.stdout, report)
		return nil
	}, nil
}

func parseProvider(fs *flag.FlagSet, args []string) (execFunc, error) {
	key := fs.String("key", "", "API key to store; an empty value clears it")
	list := fs.Bool("list", false, "list providers and their configuration")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return nil, err
	}
	keySet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "key" {
			keySet = true
		}
	})

	if *list {
		if len(positional) > 0 || keySet {
			return nil, fmt.Errorf("%w: --list takes no other arguments", errUsage)
		}
		return listProviders, nil
	}
	if len(positional) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one provider id", errUsage)
	}
	id, err := weather.ParseProviderID(positional[0])
	if err != nil {
		return nil, err
	}

	if keySet {
		return func(ctx context.Context, a *app) error {
			becameDefault, err := a.settings.SetProviderKey(ctx, string(id), *key)
			if err != nil {
				return err
			}
			if strings.TrimSpace(*key) == "" {
				fmt.Fprintf(a.stdout, "Cleared API key for %s.\n", id.Name())
				return nil
			}
			fmt.Fprintf(a.stdout, "Saved API key for %s.\n", id.Name())
			if becameDefault {
				fmt.Fprintf(a.stdout, "%s is now the default provider.\n", id.Name())
			}
			return nil
		}, nil
	}

	return func(ctx context.Context, a *app) error {
		if err := a.settings.SetDefaultProvider(ctx, string(id)); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Default provider set to %s.\n", id.Name())
		return nil
	}, nil
}

func listProviders(_ context.Context, a *app) error {
	configured := make(map[weather.ProviderID]weather.ProviderConfig)
	for _, cfg := range a.settings.Providers() {
		configured[cfg.ID] = cfg
	}

	w := newTable(a.stdout)
	fmt.Fprintln(w, "\tID\tNAME\tAPI KEY")
	for _, id := range weather.KnownProviders() {
		cfg := configured[id]
		marker := ""
		if cfg.IsDefault {
			marker = "*"
		}
		key := common.MaskSecret(cfg.APIKey)
		if !id.RequiresKey() {
			key = "(not required)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, id, id.Name(), key)
	}
	return w.Flush()
}

func parseAlias(fs *flag.FlagSet, args []string) (execFunc, error) {
	address := fs.String("address", "", "address the alias points to")
	list := fs.Bool("list", false, "list aliases")
	remove := fs.String("remove", "", "remove the named alias")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) > 1 {
		return nil, fmt.Errorf("%w: expected at most one alias name, quote addresses with spaces", errUsage)
	}
	addressSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "address" {
			addressSet = true
		}
	})

	switch {
	case *list:
		if len(positional) > 0 || addressSet || *remove != "" {
			return nil, fmt.Errorf("%w: --list takes no other arguments", errUsage)
		}
		return listAliases, nil

	case *remove != "":
		if len(positional) > 0 || addressSet {
			return nil, fmt.Errorf("%w: --remove takes no other arguments", errUsage)
		}
		return func(ctx context.Context, a *app) error {
			wasDefault, err := a.settings.RemoveAlias(ctx, *remove)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed alias '%s'.\n", strings.ToLower(*remove))
			if wasDefault {
				fmt.Fprintln(a.stdout, "It was the default alias; set a new one with: weather alias <NAME>")
			}
			return nil
		}, nil

	case len(positional) == 0:
		return nil, fmt.Errorf("%w: expected an alias name", errUsage)
	}

	name := positional[0]
	if addressSet {
		if strings.TrimSpace(*address) == "" {
			return nil, fmt.Errorf("%w: address must not be empty", store.ErrInvalidAlias)
		}
		return func(ctx context.Context, a *app) error {
			becameDefault, err := a.settings.SetAlias(ctx, name, *address)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Alias '%s' -> %s\n", strings.ToLower(name), strings.TrimSpace(*address))
			if becameDefault {
				fmt.Fprintf(a.stdout, "'%s' is now the default alias.\n", strings.ToLower(name))
			}
			return nil
		}, nil
	}

	return func(ctx context.Context, a *app) error {
		if err := a.settings.SetDefaultAlias(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Default alias set to '%s'.\n", strings.ToLower(name))
		return nil
	}, nil
}

func listAliases(_ context.Context, a *app) error {
	aliases := a.settings.Aliases()
	if len(aliases) == 0 {
		fmt.Fprintln(a.stdout, "No aliases. Add one with: weather alias <NAME> --address <ADDRESS>")
		return nil
	}

	w := newTable(a.stdout)
	fmt.Fprintln(w, "\tNAME\tADDRESS")
	for _, al := range aliases {
		marker := ""
		if al.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", marker, al.Name, al.Address)
	}
	return w.Flush()
}
