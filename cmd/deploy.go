package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the collection contracts",
	Long: `Run the deployment routines selected by --tags against the connected network.

Routines run in order: mocks, basicnft, randomipfs, dynamicsvg. Mocks are only
deployed on development chains (hardhat, localhost). On live networks the
coordinator, subscription and price feed come from the network table, and
contracts are verified on Etherscan when ETHERSCAN_API_KEY is set.

Set UPLOAD_TO_PINATA=true to upload the dog images and metadata instead of
using the pinned token URIs.

Examples:
  nftctl deploy
  nftctl deploy --tags mocks,randomipfs
  nftctl deploy --network sepolia --tags main`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringSlice("tags", nil, "routine tags to run (all, main, mocks, basicnft, randomipfs, dynamicsvg)")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()
	tags, _ := cmd.Flags().GetStringSlice("tags")

	c, err := connect(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer c.client.Close()

	opts, err := transactor(ctx, c.network)
	if err != nil {
		printError(err)
		return err
	}
	verifier, err := newVerifier(c.network.ChainID, logger)
	if err != nil {
		printError(err)
		return err
	}

	env := &deploy.Env{
		Network:          c.network,
		Backend:          c.client,
		Opts:             opts,
		Artifacts:        contracts.NewArtifactStore(flagOr(artifactsDir, "artifacts")),
		Store:            deploy.NewStore(flagOr(deployDir, "deployments"), c.network.Name),
		Logger:           logger,
		UploadToPinata:   viper.GetBool("upload_to_pinata"),
		RandomImagesDir:  viper.GetString("random_images"),
		DynamicImagesDir: viper.GetString("dynamic_images"),
		Verifier:         verifier,
	}
	if env.UploadToPinata {
		client, closeFn, err := newPinata(logger)
		if err != nil {
			printError(err)
			return err
		}
		defer closeFn()
		env.Pinner = client
	}

	logger.Info("starting deployment",
		slog.String("network", c.network.Name),
		slog.Uint64("chain_id", c.network.ChainID),
		slog.String("deployer", opts.From.Hex()),
	)
	if err := deploy.NewRunner(env).Run(ctx, tags); err != nil {
		printError(err)
		return err
	}

	return printDeployments(env.Store)
}

func printDeployments(store *deploy.Store) error {
	names := []string{
		contracts.VRFCoordinatorV2MockName,
		contracts.MockV3AggregatorName,
		contracts.BasicNftName,
		contracts.RandomIpfsNftName,
		contracts.DynamicSvgNftName,
	}
	var records []*deploy.Record
	for _, name := range names {
		rec, err := store.Load(name)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"deployments": records,
			"dir":         store.Dir(),
		})
	}

	fmt.Printf("%s Deployments in %s\n", colorGreen("✓"), store.Dir())
	w := newTable()
	printTableHeader(w, "CONTRACT", "ADDRESS", "BLOCK")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\n", rec.Contract, rec.Address.Hex(), rec.BlockNumber)
	}
	return w.Flush()
}
