package cmd

import (
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/7blacky7/ki-browser-standalone/internal/stealth"
)

var (
	fingerprintSeed    int64
	fingerprintProfile string
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Generate a browser fingerprint and print it as JSON.",
	Long: `Generates a spoofed browser fingerprint. The same seed and profile
always produce the same fingerprint, so sessions can be reproduced. Without
--profile a realistic profile is drawn from the weighted market-share pool.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := stealth.NewGenerator(fingerprintSeed)

		var fp *stealth.Fingerprint
		if fingerprintProfile != "" {
			profile, err := stealth.ParseProfile(fingerprintProfile)
			if err != nil {
				return err
			}
			fp = gen.Generate(profile)
		} else {
			fp = gen.Random()
		}

		out, err := json.MarshalIndent(fp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode fingerprint: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	fingerprintCmd.Flags().Int64Var(&fingerprintSeed, "seed", 0, "fingerprint seed (0 draws a random one)")
	fingerprintCmd.Flags().StringVar(&fingerprintProfile, "profile", "", "fingerprint profile (e.g. windows-chrome, mac-safari)")
	rootCmd.AddCommand(fingerprintCmd)
}
