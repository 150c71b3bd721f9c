package cmd

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/deploy"
	"github.com/Bidon15/nftctl/internal/mint"
	"github.com/Bidon15/nftctl/internal/network"
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint tokens from deployed collections",
	Long: `Mint from the collections recorded in the deployments directory.

Examples:
  nftctl mint random
  nftctl mint random --value 20000000000000000 --timeout 5m
  nftctl mint basic
  nftctl mint dynamic --high-value 4000000000000000000000`,
}

var mintRandomCmd = &cobra.Command{
	Use:   "random",
	Short: "Request a random dog and wait for the VRF fulfillment",
	Long: `Pay the mint fee, request randomness and wait for the coordinator to
fulfill it. On development chains the coordinator mock is told to fulfill the
request right away.`,
	RunE: runMintRandom,
}

var mintBasicCmd = &cobra.Command{
	Use:   "basic",
	Short: "Mint a fixed-URI token",
	RunE:  runMintBasic,
}

var mintDynamicCmd = &cobra.Command{
	Use:   "dynamic",
	Short: "Mint a price-driven SVG token",
	RunE:  runMintDynamic,
}

func init() {
	mintRandomCmd.Flags().String("value", "", "payment in wei (default: the contract's mint fee)")
	mintRandomCmd.Flags().Duration("timeout", 0, "how long to wait for fulfillment (default 2m)")
	mintRandomCmd.Flags().Duration("poll", mint.DefaultPollInterval, "fulfillment log poll interval")

	mintDynamicCmd.Flags().String("high-value", "4000000000000000000000", "feed answer at or above which the high image is shown")

	mintCmd.AddCommand(mintRandomCmd)
	mintCmd.AddCommand(mintBasicCmd)
	mintCmd.AddCommand(mintDynamicCmd)
	rootCmd.AddCommand(mintCmd)
}

func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is not a wei amount", network.ErrInvalidValue, s)
	}
	return v, nil
}

func runMintRandom(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

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

	store := deploy.NewStore(flagOr(deployDir, "deployments"), c.network.Name)
	nftAddr, err := store.Address(contracts.RandomIpfsNftName)
	if err != nil {
		printError(err)
		return err
	}
	var coordAddr common.Address
	if c.network.IsDevelopment() {
		coordAddr, err = store.Address(contracts.VRFCoordinatorV2MockName)
	} else {
		coordAddr, err = c.network.Coordinator()
	}
	if err != nil {
		printError(err)
		return err
	}

	cfg := mint.RandomConfig{FulfillLocally: c.network.IsDevelopment()}
	if s, _ := cmd.Flags().GetString("value"); s != "" {
		if cfg.Value, err = parseWei(s); err != nil {
			return err
		}
	}
	cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	if cfg.Timeout == 0 {
		cfg.Timeout = viper.GetDuration("mint_timeout")
	}
	cfg.PollInterval, _ = cmd.Flags().GetDuration("poll")

	minter := mint.NewMinter(
		contracts.NewRandomIpfsNft(nftAddr, c.client),
		contracts.NewCoordinator(coordAddr, c.client),
		c.client,
		opts,
		newRegistry(logger),
		cfg,
		logger,
	)

	start := time.Now()
	res, err := minter.MintRandom(ctx)
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"request_id": res.RequestID.String(),
			"word":       res.Word.String(),
			"category":   res.Category,
			"breed":      res.Breed,
			"minter":     res.Minter.Hex(),
			"request_tx": res.RequestTx.Hex(),
			"fulfill_tx": res.FulfillTx.Hex(),
		})
	}

	fmt.Printf("%s Minted %s\n", colorGreen("✓"), colorBold(res.Breed))
	fmt.Printf("  Request ID: %s\n", res.RequestID)
	fmt.Printf("  Request Tx: %s\n", res.RequestTx.Hex())
	fmt.Printf("  Fulfill Tx: %s\n", res.FulfillTx.Hex())
	fmt.Printf("  Waited:     %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runMintBasic(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

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
	addr, err := deploy.NewStore(flagOr(deployDir, "deployments"), c.network.Name).Address(contracts.BasicNftName)
	if err != nil {
		printError(err)
		return err
	}

	tok, err := mint.MintBasic(ctx, contracts.NewBasicNft(addr, c.client), c.client, opts, logger)
	if err != nil {
		printError(err)
		return err
	}
	return printToken(tok)
}

func runMintDynamic(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	s, _ := cmd.Flags().GetString("high-value")
	highValue, err := parseWei(s)
	if err != nil {
		return err
	}

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
	addr, err := deploy.NewStore(flagOr(deployDir, "deployments"), c.network.Name).Address(contracts.DynamicSvgNftName)
	if err != nil {
		printError(err)
		return err
	}

	nft := contracts.NewDynamicSvgNft(addr, c.client)
	feedAddr, err := nft.PriceFeed(ctx)
	if err != nil {
		printError(err)
		return err
	}

	tok, err := mint.MintDynamic(ctx, nft, contracts.NewMockV3Aggregator(feedAddr, c.client), c.client, opts, highValue, logger)
	if err != nil {
		printError(err)
		return err
	}
	return printToken(tok)
}

func printToken(tok *mint.Token) error {
	if jsonOut {
		return printJSON(map[string]interface{}{
			"token_id": tok.ID.String(),
			"uri":      tok.URI,
			"tx_hash":  tok.TxHash.Hex(),
		})
	}
	fmt.Printf("%s Minted token %s\n", colorGreen("✓"), tok.ID)
	fmt.Printf("  Tx:  %s\n", tok.TxHash.Hex())
	fmt.Printf("  URI: %s\n", tok.URI)
	return nil
}
