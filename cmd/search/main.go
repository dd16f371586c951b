// Command search is a one-shot CLI: it loads an address CSV, builds the
// bigram index in memory, runs a single query, and prints the matching rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mkurosawa/addrsearch/internal/corpus"
	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/search"
	"github.com/mkurosawa/addrsearch/pkg/logger"
)

const (
	defaultSearchable = "都道府県,都道府県カナ,市区町村,市区町村カナ,町域,町域カナ,町域補足,補足,事業所名,事業所名カナ,事業所住所"
	defaultDisplay    = "郵便番号,都道府県,市区町村,町域"
)

func main() {
	csvPath := flag.String("csv", "", "path to the address CSV file (required)")
	query := flag.String("q", "", "search query (required)")
	searchable := flag.String("fields", defaultSearchable, "comma-separated searchable columns")
	display := flag.String("display", defaultDisplay, "comma-separated columns to print")
	gramSize := flag.Int("gram", 2, "n-gram width")
	limit := flag.Int("limit", 0, "maximum rows to print (0 = all)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *csvPath == "" || *query == "" {
		flag.Usage()
		os.Exit(2)
	}
	level := "error"
	if *verbose {
		level = "debug"
	}
	logger.Setup(level, "text")

	corp, _, err := corpus.LoadCSV(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load corpus: %v\n", err)
		os.Exit(1)
	}

	builder := index.NewBuilder(strings.Split(*searchable, ","), *gramSize, 0)
	ix, err := builder.Build(context.Background(), corp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build index: %v\n", err)
		os.Exit(1)
	}

	store := index.NewStore()
	store.Publish(ix, corp)
	engine := search.New(store)

	ids := engine.Search(*query)
	if *limit > 0 && len(ids) > *limit {
		ids = ids[:*limit]
	}
	displayFields := strings.Split(*display, ",")
	for _, rec := range corp.Resolve(ids) {
		values := make([]string, len(displayFields))
		for i, name := range displayFields {
			values[i] = rec.Field(name)
		}
		fmt.Println(strings.Join(values, "\t"))
	}
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "no matches for %q\n", *query)
	}
}
