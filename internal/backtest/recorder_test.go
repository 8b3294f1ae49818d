package backtest

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"meanrev-go/internal/broker"
)

func TestJSONLRecorder(t *testing.T) {
	tmp := t.TempDir()
	path := tmp + "/fills.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := broker.Fill{Symbol: "NIFTY", Side: broker.Buy, Qty: 2, Price: 10850}
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded broker.Fill
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Symbol != fill.Symbol || decoded.Side != fill.Side {
		t.Fatalf("unexpected decoded fill")
	}
}
