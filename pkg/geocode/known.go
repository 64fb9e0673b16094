package geocode

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// LoadKnownAddresses reads a curated "lat,lng,address" CSV ('#' starts a
// comment line) into an override table keyed by the cleaned address. Each
// entry is duplicated under every given prefix, so the table also answers
// prefixed candidate forms of the same address.
func LoadKnownAddresses(r io.Reader, prefixes ...string) (map[string]Point, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 3

	known := make(map[string]Point)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "geocode: read known addresses")
		}

		lat, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geocode: known addresses: bad latitude %q", record[0])
		}
		lng, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geocode: known addresses: bad longitude %q", record[1])
		}

		address := CleanAddress(record[2])
		if address == "" {
			continue
		}

		p := Point{Lat: lat, Lng: lng}
		known[address] = p
		for _, prefix := range prefixes {
			known[CleanAddress(prefix+" "+address)] = p
		}
	}
	return known, nil
}

// LoadKnownAddressesFile is LoadKnownAddresses over a file path.
func LoadKnownAddressesFile(path string, prefixes ...string) (map[string]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open known addresses %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadKnownAddresses(f, prefixes...)
}
