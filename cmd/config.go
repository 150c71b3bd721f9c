package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect CLI configuration",
	Long:  `Commands for inspecting the nftctl configuration and network table.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configNetworksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List known networks and their parameters",
	RunE:  runConfigNetworks,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configNetworksCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := map[string]interface{}{
		"rpc_url":           flagOr(rpcURL, "rpc_url"),
		"network":           flagOr(networkName, "network"),
		"artifacts":         flagOr(artifactsDir, "artifacts"),
		"deployments":       flagOr(deployDir, "deployments"),
		"private_key":       maskSecret(viper.GetString("private_key")),
		"pinata_api_key":    maskSecret(viper.GetString("pinata_api_key")),
		"pinata_api_secret": maskSecret(viper.GetString("pinata_api_secret")),
		"etherscan_api_key": maskSecret(viper.GetString("etherscan_api_key")),
		"upload_to_pinata":  viper.GetBool("upload_to_pinata"),
		"mint_timeout":      viper.GetDuration("mint_timeout").String(),
		"config_file":       viper.ConfigFileUsed(),
	}
	if jsonOut {
		return printJSON(settings)
	}

	fmt.Printf("RPC URL:           %s\n", settings["rpc_url"])
	if n := settings["network"]; n != "" {
		fmt.Printf("Network:           %s\n", n)
	} else {
		fmt.Printf("Network:           %s\n", colorYellow("(from chain id)"))
	}
	fmt.Printf("Artifacts:         %s\n", settings["artifacts"])
	fmt.Printf("Deployments:       %s\n", settings["deployments"])
	fmt.Printf("Private Key:       %s\n", settings["private_key"])
	fmt.Printf("Pinata API Key:    %s\n", settings["pinata_api_key"])
	fmt.Printf("Pinata API Secret: %s\n", settings["pinata_api_secret"])
	fmt.Printf("Etherscan API Key: %s\n", settings["etherscan_api_key"])
	fmt.Printf("Upload to Pinata:  %v\n", settings["upload_to_pinata"])
	fmt.Printf("Mint Timeout:      %s\n", settings["mint_timeout"])
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config File:       %s\n", configFile)
	} else {
		fmt.Printf("Config File:       %s\n", colorYellow("(none, expected at "+configFilePath()+")"))
	}
	return nil
}

func runConfigNetworks(cmd *cobra.Command, args []string) error {
	networks, err := loadNetworks()
	if err != nil {
		printError(err)
		return err
	}
	all := networks.All()

	if jsonOut {
		return printJSON(all)
	}

	w := newTable()
	printTableHeader(w, "NAME", "CHAIN ID", "DEV", "COORDINATOR", "SUBSCRIPTION", "MINT FEE", "CONFIRMATIONS")
	for _, n := range all {
		dev := "-"
		if n.IsDevelopment() {
			dev = colorGreen("yes")
		}
		coord := n.VRFCoordinatorV2
		if coord == "" {
			coord = "(mock)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\t%d\n",
			n.Name, n.ChainID, dev, coord, n.SubscriptionID, n.MintFee, n.Confirmations())
	}
	return w.Flush()
}
