package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	keysApifyToken string
	keysOpenAIKey  string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API credentials",
}

var keysSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save API credentials in the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if keysApifyToken == "" && keysOpenAIKey == "" {
			return eris.New("keys: nothing to set, pass --apify-token and/or --openai-key")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		creds := model.Credentials{ApifyToken: keysApifyToken, OpenAIKey: keysOpenAIKey}

		// Partial updates keep the other secret.
		if existing, err := st.GetCredentials(ctx); err == nil && existing != nil {
			if creds.ApifyToken == "" {
				creds.ApifyToken = existing.ApifyToken
			}
			if creds.OpenAIKey == "" {
				creds.OpenAIKey = existing.OpenAIKey
			}
		}

		if err := st.SaveCredentials(ctx, creds); err != nil {
			return eris.Wrap(err, "save credentials")
		}
		fmt.Println("credentials saved")
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which credentials are stored (masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		creds, err := st.GetCredentials(ctx)
		if err != nil {
			return err
		}
		if creds == nil {
			fmt.Println("no credentials stored")
			return nil
		}
		fmt.Printf("apify token: %s\n", mask(creds.ApifyToken))
		fmt.Printf("openai key:  %s\n", mask(creds.OpenAIKey))
		return nil
	},
}

var keysClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCredentials(ctx); err != nil {
			return eris.Wrap(err, "clear credentials")
		}
		fmt.Println("credentials cleared")
		return nil
	},
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	keysSetCmd.Flags().StringVar(&keysApifyToken, "apify-token", "", "Apify API token")
	keysSetCmd.Flags().StringVar(&keysOpenAIKey, "openai-key", "", "completion API key")

	keysCmd.AddCommand(keysSetCmd, keysShowCmd, keysClearCmd)
	rootCmd.AddCommand(keysCmd)
}
