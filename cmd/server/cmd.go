package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	bind    string
	port    int
	envFile string
	verbose bool
}

func (o *options) validate() error {
	if o.port < 1 || o.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", o.port)
	}
	if o.envFile == "" {
		return errors.New("--env-file must not be empty")
	}
	return nil
}

func newCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DRAWPHONE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "drawphone",
		Short:         "Serves the drawphone party game over HTTP and websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DRAWPHONE_BIND)")
	fs.IntVarP(&opts.port, "port", "p", 8080, "port to listen on (env: DRAWPHONE_PORT)")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading configuration (env: DRAWPHONE_ENV_FILE)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "development logging (env: DRAWPHONE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("drawphone v{{.Version}}\n")
	return cmd
}
