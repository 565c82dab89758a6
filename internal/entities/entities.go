// Package entities loads the flat list of account addresses under
// reconciliation.
package entities

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const addressColumn = "address"

var addressShape = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// Load reads the entity CSV and returns the lower-cased address list in file
// order. Blank cells are skipped. An unreadable file, a missing address
// column, or a malformed address is a configuration error and aborts the
// run.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entity list: %w", err)
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read entity list header: %w", err)
	}

	column := -1
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) == addressColumn {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("entity list has no '%s' column", addressColumn)
	}

	var addresses []string
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read entity list line %d: %w", line, err)
		}
		if column >= len(row) {
			continue
		}
		addr := strings.ToLower(strings.TrimSpace(row[column]))
		if addr == "" {
			continue
		}
		if !addressShape.MatchString(addr) {
			return nil, fmt.Errorf("entity list line %d: '%s' is not a valid address", line, addr)
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
