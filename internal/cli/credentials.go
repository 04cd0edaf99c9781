package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/service"
)

var (
	credAccessKey string
	credRegion    string
	credBucket    string
	credEndpoint  string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage storage credentials",
	Long:  "Manage the S3-compatible storage credentials used for backup uploads",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store storage credentials",
	Long:  "Store the access key, secret key and bucket for the backup target. The secret key is prompted and never read from flags.",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		if !services.Vault.Enabled() {
			fmt.Fprintf(os.Stderr, "Warning: %s is not set, the secret key will be stored unencrypted\n", encryptionSecretEnv)
		}

		secretKey, err := promptPassword("Enter secret key: ")
		if err != nil {
			return err
		}

		credential, err := services.CredentialService.SetCredentials(cmd.Context(), service.SetCredentialsInput{
			AccessKey: credAccessKey,
			SecretKey: secretKey,
			Region:    credRegion,
			Bucket:    credBucket,
			Endpoint:  credEndpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}

		if err := services.StorageService.Reload(cmd.Context()); err != nil {
			return fmt.Errorf("credentials stored but storage client reload failed: %w", err)
		}

		if err := services.StorageService.TestConnection(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: connection test failed: %v\n", err)
		} else {
			fmt.Println("Connection test passed")
		}

		fmt.Printf("Credentials stored for bucket '%s'", credential.Bucket)
		if credential.KeyScheme == domain.KeySchemeAESCBC {
			fmt.Print(" (secret key encrypted)")
		}
		fmt.Println()
		return nil
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active credentials",
	Long:  "Show the active storage credentials with the secret key masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		credential, err := services.CredentialService.GetCredentials(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		if credential == nil {
			fmt.Println("No storage credentials configured")
			return nil
		}

		encrypted := "no"
		if credential.KeyScheme == domain.KeySchemeAESCBC {
			encrypted = "yes"
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Access key:\t%s\n", credential.AccessKey)
		fmt.Fprintf(w, "Secret key:\t********\n")
		fmt.Fprintf(w, "Region:\t%s\n", credential.Region)
		fmt.Fprintf(w, "Bucket:\t%s\n", credential.Bucket)
		fmt.Fprintf(w, "Endpoint:\t%s\n", credential.Endpoint)
		fmt.Fprintf(w, "Encrypted:\t%s\n", encrypted)
		fmt.Fprintf(w, "Updated:\t%s\n", credential.UpdatedAt.Format("2006-01-02 15:04:05"))
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)

	credentialsSetCmd.Flags().StringVar(&credAccessKey, "access-key", "", "Access key ID")
	credentialsSetCmd.Flags().StringVar(&credRegion, "region", "", "Bucket region")
	credentialsSetCmd.Flags().StringVar(&credBucket, "bucket", "", "Bucket name")
	credentialsSetCmd.Flags().StringVar(&credEndpoint, "endpoint", "", "Custom S3 endpoint URL")
	credentialsSetCmd.MarkFlagRequired("access-key")
	credentialsSetCmd.MarkFlagRequired("bucket")
}
