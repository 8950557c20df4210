package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/meow-stack/stagefan/internal/params"
)

// paramFlags are the user-side parameter sources shared by parse, inputs
// and run.
type paramFlags struct {
	message     string
	messageFile string
	env         []string
	noEnviron   bool
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.message, "message", "m", "", "free-text message carrying overrides after a '--' line")
	fs.StringVar(&f.messageFile, "message-file", "", "read the message from a file ('-' for stdin)")
	fs.StringArrayVar(&f.env, "env", nil, "override entry (format: PIP_KEY=value), repeatable")
	fs.BoolVar(&f.noEnviron, "no-environ", false, "ignore PIP_ variables from the process environment")
}

// collect returns the environment map and message text. --env entries
// override process variables of the same name.
func (f *paramFlags) collect(stdin io.Reader) (map[string]string, string, error) {
	env := map[string]string{}
	if !f.noEnviron {
		env = params.Environ()
	}
	for _, kv := range f.env {
		if !strings.Contains(kv, "=") {
			return nil, "", fmt.Errorf("invalid env format: %s (expected PIP_KEY=value)", kv)
		}
		for name, value := range params.EnvironFrom([]string{kv}) {
			env[name] = value
		}
	}

	if f.message != "" && f.messageFile != "" {
		return nil, "", fmt.Errorf("--message and --message-file are mutually exclusive")
	}
	message := f.message
	switch f.messageFile {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading message from stdin: %w", err)
		}
		message = string(data)
	default:
		data, err := os.ReadFile(f.messageFile)
		if err != nil {
			return nil, "", fmt.Errorf("reading message file: %w", err)
		}
		message = string(data)
	}
	return env, message, nil
}

// writeFormatted encodes v as json or yaml.
func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s (expected json or yaml)", format)
	}
}
