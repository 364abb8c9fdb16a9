// Command idxcheck resolves a product code and level against a local GRIB2
// index (.idx) file and prints the byte range the message occupies.
//
// Usage:
//
//	go run ./cmd/idxcheck -idx gfs.t12z.pgrb2.1p00.f006.idx -code TMP -level "2 m above ground"
//
// With -prefix, level fields carrying extra qualifiers (e.g. "surface:anl")
// also match. Exits 1 when no record matches.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

func main() {
	idxPath := flag.String("idx", "", "path to a GRIB2 .idx file")
	code := flag.String("code", "", "product code, e.g. TMP")
	level := flag.String("level", "", `level, e.g. "2 m above ground"`)
	prefix := flag.Bool("prefix", false, "accept level fields with extra qualifiers")
	flag.Parse()

	if *idxPath == "" || *code == "" || *level == "" {
		flag.Usage()
		os.Exit(2)
	}

	r, err := resolve(*idxPath, *code, *level, *prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "idxcheck:", err)
		os.Exit(1)
	}
	fmt.Println(r.String())
	fmt.Println("Range:", r.Header())
}

func resolve(path, code, level string, prefix bool) (domain.ByteRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ByteRange{}, err
	}
	match := domain.MatchExact
	if prefix {
		match = domain.MatchPrefix
	}
	r, err := domain.ResolveByteRange(string(data), code, level, match)
	if err != nil {
		return domain.ByteRange{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
