package entities

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	addr1 := "0x" + strings.Repeat("a", 40)
	addr2 := "0x" + strings.Repeat("b", 40)

	path := writeCSV(t, strings.Join([]string{
		"rank,Address,label",
		"1,0x" + strings.ToUpper(strings.Repeat("a", 40)) + ",whale",
		"2,  " + addr2 + " ,fund",
		"3,,empty",
	}, "\n"))

	addresses, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("expected 2 addresses, got %d: %v", len(addresses), addresses)
	}
	if addresses[0] != addr1 {
		t.Errorf("address[0] = %s, want lowercased %s", addresses[0], addr1)
	}
	if addresses[1] != addr2 {
		t.Errorf("address[1] = %s, want trimmed %s", addresses[1], addr2)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeCSV(t, "rank,wallet\n1,0xabc")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "address") {
		t.Errorf("expected missing-column error, got %v", err)
	}
}

func TestLoadInvalidAddress(t *testing.T) {
	path := writeCSV(t, "address\nnot-an-address")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "not a valid address") {
		t.Errorf("expected invalid-address error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
