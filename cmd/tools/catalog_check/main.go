package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
	"github.com/noah-isme/boxcart/internal/pricing"
)

// catalog_check loads a catalog file and prints the tier table with a sample quote per tier.
// Exit code 0 = ok, 1 = invalid catalog, 2 = other error.
func main() {
	path := flag.String("file", os.Getenv("CATALOG_PATH"), "catalog YAML file (empty checks the built-in catalog)")
	flag.Parse()

	cat, err := catalog.LoadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog_check: %v\n", err)
		os.Exit(exitCode(err))
	}
	report(os.Stdout, cat)
	fmt.Println("catalog_check: OK")
}

func exitCode(err error) int {
	if errors.Is(err, catalog.ErrInvalidProduct) || errors.Is(err, catalog.ErrInvalidTier) {
		return 1
	}
	return 2
}

func report(w io.Writer, cat *catalog.Catalog) {
	products := cat.Products()
	fmt.Fprintf(w, "%d products\n", len(products))
	for _, p := range products {
		fmt.Fprintf(w, "  %-10s %-16s %6s  season=%s substitutable=%t\n", p.SKU, p.DisplayName(), p.UnitPrice.StringFixed(2), p.Season, p.Substitutable)
	}

	engine := pricing.Engine{Catalog: cat}
	fmt.Fprintf(w, "%d tiers\n", len(cat.Tiers()))
	for _, t := range cat.Tiers() {
		line := fmt.Sprintf("  %-4s %d-%d items  discount=%s", t.Label, t.MinItems, t.MaxItems, t.Discount.String())
		if len(products) > 0 {
			items := []bundle.LineItem{{SKU: products[0].SKU, Quantity: t.MinItems}}
			q := engine.Quote(t.Label, items, nil)
			line += fmt.Sprintf("  min box of %s = %s", products[0].SKU, q.Total.StringFixed(2))
		}
		fmt.Fprintln(w, line)
	}
}
