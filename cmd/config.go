package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/njyeung/kplay/config"
	"github.com/njyeung/kplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringSliceP("key", "k", []string{}, "Only show these keys")
	configCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	_ = configCmd.RegisterFlagCompletionFunc("key", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show every configuration field with its current value",
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))
		if len(keys) == 0 {
			keys = config.Keys()
		}

		fields := make([]*config.Field, 0, len(keys))
		for _, k := range keys {
			f, ok := config.Default[k]
			if !ok {
				handleErr(fmt.Errorf("unknown key %s", k))
			}
			fields = append(fields, &f)
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			data, err := json.MarshalIndent(fields, "", "  ")
			handleErr(err)
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "config file: %s\n\n", where.Config())
		for _, f := range fields {
			fmt.Fprintln(cmd.OutOrStdout(), f.Pretty())
		}
	},
}
