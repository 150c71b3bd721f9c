package cmd

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/Bidon15/nftctl/internal/category"
)

var breedCmd = &cobra.Command{
	Use:   "breed [rng]",
	Short: "Resolve a random number to a dog breed",
	Long: `Resolve a random value in [0, 100) to its breed with the cumulative chance
table PUG 0-9, SHIBA_INU 10-39, ST_BERNARD 40-99. Values of 100 or more are
rejected unless --mod reduces them first, as the contract does with a random
word.

Without an argument the chance table is printed.

Examples:
  nftctl breed
  nftctl breed 42
  nftctl breed --mod 78541660797044910968829902406342334108369226379826116161446442989268089806461`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBreed,
}

func init() {
	breedCmd.Flags().Bool("mod", false, "reduce the value modulo 100 first")
	rootCmd.AddCommand(breedCmd)
}

func breedTable() *category.Table {
	return category.DogBreeds()
}

func runBreed(cmd *cobra.Command, args []string) error {
	table := breedTable()
	if len(args) == 0 {
		return printChances(table)
	}

	v, ok := new(big.Int).SetString(args[0], 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("%q is not a non-negative integer", args[0])
	}
	if mod, _ := cmd.Flags().GetBool("mod"); mod {
		v.Mod(v, big.NewInt(category.MaxChance))
	}
	if !v.IsUint64() {
		err := fmt.Errorf("%w: %s", category.ErrRangeOutOfBounds, v)
		printError(err)
		return err
	}

	cat, err := table.Resolve(v.Uint64())
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"rng":      v.String(),
			"category": cat,
			"breed":    table.Name(cat),
		})
	}
	fmt.Printf("%s -> %s (%d)\n", v, colorBold(table.Name(cat)), cat)
	return nil
}

func printChances(table *category.Table) error {
	points := table.Breakpoints()
	if jsonOut {
		return printJSON(points)
	}

	w := newTable()
	printTableHeader(w, "CATEGORY", "BREED", "RANGE", "CHANCE")
	var lower uint64
	for _, p := range points {
		fmt.Fprintf(w, "%d\t%s\t%d-%d\t%d%%\n", p.Category, p.Name, lower, p.UpperBound, p.UpperBound-lower+1)
		lower = p.UpperBound + 1
	}
	return w.Flush()
}
