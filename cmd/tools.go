package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"cascade-bridge/internal/discovery"
	"cascade-bridge/internal/registry"
)

// fields prints the Metadata field map discovered from the extension
// asset, for checking discovery against a new vendor build.
func fields(args []string) error {
	fs := flag.NewFlagSet("fields", flag.ContinueOnError)
	var assetPath string
	fs.StringVar(&assetPath, "asset", "", "override extension asset path")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse fields flags: %w", err)
	}

	source := &discovery.Source{AssetPath: assetPath}
	fm := source.FieldMap()
	out := map[string]uint32{
		"api_key":           fm.APIKey,
		"ide_name":          fm.IDEName,
		"ide_version":       fm.IDEVersion,
		"extension_version": fm.ExtensionVersion,
		"session_id":        fm.SessionID,
		"locale":            fm.Locale,
	}
	return printJSON(out)
}

// modelsCmd prints the built-in catalog, or the vendor's enum when an
// asset is given.
func modelsCmd(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	var assetPath string
	fs.StringVar(&assetPath, "asset", "", "extract the model enum from this extension asset")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse models flags: %w", err)
	}

	if assetPath != "" {
		source := &discovery.Source{AssetPath: assetPath}
		entries, err := source.ModelEnum()
		if err != nil {
			return fmt.Errorf("extract model enum from %q: %w", assetPath, err)
		}
		return printJSON(entries)
	}

	return printJSON(registry.List())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
