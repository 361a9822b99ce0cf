package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show the effective configuration, or change one key in the config file.
Changes apply on the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Example: `  kage config set api.base_url http://localhost:8000/api
  kage config set cache.ttl 5m
  kage config set notifications.desktop true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(app.configPath, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "  %s = %s\n", strings.ToLower(args[0]), args[1])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file and cache database paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := dbPath
		if db == "" {
			db = config.GetDBPath(app.config)
		}
		if jsonOutput {
			return printJSON(cmd, map[string]string{"config": app.configPath, "db": db})
		}
		fmt.Fprintf(out(cmd), "config: %s\ndb:     %s\n", app.configPath, db)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func showConfig(cmd *cobra.Command) error {
	values := configValues(app.config)
	if jsonOutput {
		return printJSON(cmd, values)
	}
	w := out(cmd)
	for _, key := range config.Keys() {
		fmt.Fprintf(w, "  %-28s %v\n", key, values[key])
	}
	return nil
}

// configValues flattens cfg into "section.key" pairs using the
// mapstructure tags, so the listing matches what `config set` accepts.
func configValues(cfg *config.Config) map[string]interface{} {
	values := map[string]interface{}{}
	root := reflect.ValueOf(cfg).Elem()
	for i := 0; i < root.NumField(); i++ {
		section := root.Type().Field(i).Tag.Get("mapstructure")
		sv := root.Field(i)
		for j := 0; j < sv.NumField(); j++ {
			key := section + "." + sv.Type().Field(j).Tag.Get("mapstructure")
			v := sv.Field(j).Interface()
			if d, ok := v.(config.Duration); ok {
				v = time.Duration(d).String()
			}
			values[key] = v
		}
	}
	return values
}
