package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Defaults used by DefaultOptions and therefore by LoadOptions
const (
	DefaultOutputDir        = "wiki_dump"
	DefaultCombinedFilename = "aoe4-wiki.txt"
)

// Options holds the filesystem side of an export run
type Options struct {
	// OutputDir is wiped and recreated at the start of every run
	OutputDir string `yaml:"output_dir" env:"EXPORT_OUTPUT_DIR"`

	// CombinedFilename is written inside OutputDir by the combination stage
	CombinedFilename string `yaml:"combined_filename" env:"EXPORT_COMBINED_FILENAME"`

	// SkipCombine disables the combination stage
	SkipCombine bool `yaml:"skip_combine" env:"EXPORT_SKIP_COMBINE"`
}

// DefaultOptions returns the built-in settings
func DefaultOptions() Options {
	return Options{
		OutputDir:        DefaultOutputDir,
		CombinedFilename: DefaultCombinedFilename,
	}
}

// LoadOptions loads options from the YAML file at path, if path is not empty,
// and then from environment variables.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &opts)
	} else {
		err = cleanenv.ReadEnv(&opts)
	}
	if err != nil {
		return Options{}, fmt.Errorf("failed to read export options: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks the options before any file is touched
func (o Options) Validate() error {
	if err := checkResettable(o.OutputDir); err != nil {
		return fmt.Errorf("invalid EXPORT_OUTPUT_DIR: %w", err)
	}

	name := o.CombinedFilename
	if name == "" {
		return fmt.Errorf("invalid EXPORT_COMBINED_FILENAME: must not be empty")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("invalid EXPORT_COMBINED_FILENAME %q: must be a bare file name", name)
	}
	if !strings.HasSuffix(strings.ToLower(name), textExt) {
		return fmt.Errorf("invalid EXPORT_COMBINED_FILENAME %q: must end in %s", name, textExt)
	}
	return nil
}
