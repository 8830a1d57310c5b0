package analyzer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gnana997/apidiff/pkg/apishape"
	"github.com/gnana997/apidiff/pkg/parser"
)

// TSConfig is the subset of tsconfig.json the analyzer consults: the flags
// that gate whether JavaScript files go through the type-aware flavor.
type TSConfig struct {
	CompilerOptions struct {
		AllowJS bool `json:"allowJs"`
		CheckJS bool `json:"checkJs"`
	} `json:"compilerOptions"`
}

// loadTSConfig reads a tsconfig.json. A missing path is an error; the caller
// treats it as invalid configuration and returns an empty report.
func loadTSConfig(path string) (*TSConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tsconfig %s: %w", path, err)
	}

	var cfg TSConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tsconfig %s: %w", path, err)
	}
	return &cfg, nil
}

// analysisModeFor selects the analyzer flavor for one file: TypeScript files
// are always type-aware; JavaScript files are type-aware only when the
// loaded tsconfig opts them in, and module-surface-only otherwise.
func analysisModeFor(filePath string, cfg *TSConfig) apishape.AnalysisMode {
	switch parser.DetectLanguage(filePath) {
	case parser.LanguageTypeScript:
		return apishape.ModeTypeScript
	case parser.LanguageJavaScript:
		if cfg != nil && cfg.CompilerOptions.AllowJS && cfg.CompilerOptions.CheckJS {
			return apishape.ModeTypedJS
		}
		return apishape.ModeModuleSurface
	default:
		return apishape.ModeModuleSurface
	}
}
