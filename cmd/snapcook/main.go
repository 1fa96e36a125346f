// SnapCook turns receipts, ingredient lists and dietary preferences into
// saved recipes.
//
// Usage:
//
//	snapcook login you@example.com
//	snapcook scan --file receipt.jpg
//	snapcook cook "eggs, spinach, feta"
//	snapcook chat
package main

import (
	"fmt"
	"os"

	"github.com/hammamikhairi/snapcook/internal/display"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, display.Urgent("error: "+err.Error()))
		os.Exit(1)
	}
}
