package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bidon15/nftctl/internal/metadata"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload images and token metadata to Pinata",
	Long: `Pin files to IPFS through Pinata using PINATA_API_KEY and PINATA_API_SECRET.

Set pin_cache_dir in ~/.nftctl.yaml to skip content that was pinned before.

Examples:
  nftctl upload images ./images/random
  nftctl upload metadata ./images/random`,
}

var uploadImagesCmd = &cobra.Command{
	Use:   "images [dir]",
	Short: "Pin every file in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUploadImages,
}

var uploadMetadataCmd = &cobra.Command{
	Use:   "metadata [dir]",
	Short: "Pin images and one metadata document per image, printing the token URIs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUploadMetadata,
}

func init() {
	uploadCmd.AddCommand(uploadImagesCmd)
	uploadCmd.AddCommand(uploadMetadataCmd)
	rootCmd.AddCommand(uploadCmd)
}

func imagesDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return viper.GetString("random_images")
}

func runUploadImages(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	client, closeFn, err := newPinata(logger)
	if err != nil {
		printError(err)
		return err
	}
	defer closeFn()

	uploads, files, err := client.StoreImages(cmd.Context(), imagesDir(args))
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"uploads": uploads,
			"files":   files,
		})
	}

	w := newTable()
	printTableHeader(w, "FILE", "IPFS HASH")
	for _, u := range uploads {
		fmt.Fprintf(w, "%s\t%s\n", u.File, u.IpfsHash)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(uploads) < len(files) {
		fmt.Printf("%s %d of %d files failed to upload\n", colorYellow("⚠"), len(files)-len(uploads), len(files))
	}
	return nil
}

func runUploadMetadata(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	client, closeFn, err := newPinata(logger)
	if err != nil {
		printError(err)
		return err
	}
	defer closeFn()

	uris, err := metadata.BuildTokenURIs(cmd.Context(), client, imagesDir(args), logger)
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"token_uris": uris,
			"count":      len(uris),
		})
	}

	for _, uri := range uris {
		fmt.Println(uri)
	}
	return nil
}
