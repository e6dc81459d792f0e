// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tracing

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

func decodeRecords(t *testing.T, buffer *bytes.Buffer) []map[string]any {
	t.Helper()
	var res []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if line == "" {
			continue
		}
		record := map[string]any{}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("failed to decode record %q: %v", line, err)
		}
		res = append(res, record)
	}
	return res
}

func TestTracer_OpcodeObserverIsOnlyProvidedWhenEnabled(t *testing.T) {
	if observer := New(Config{}, nil).OpcodeObserver(); observer != nil {
		t.Errorf("observer should be nil if per-opcode tracing is disabled")
	}
	if observer := New(Config{PerOpcodeTrace: true}, nil).OpcodeObserver(); observer == nil {
		t.Errorf("observer should be provided if per-opcode tracing is enabled")
	}
}

func TestTracer_OpcodesAreLoggedAsStructuredRecords(t *testing.T) {
	config := Config{PerOpcodeTrace: true, StructuredOutput: true}
	buffer := &bytes.Buffer{}
	tracer := New(config, NewLogger(config, buffer, hclog.Info))

	tracer.OpcodeObserver().OnOpcode(vesta.OpcodeStep{
		Depth:  1,
		Pc:     4,
		Op:     0x01,
		OpName: "ADD",
		Gas:    42,
		Stack:  []vesta.Word{{31: 1}, {31: 2}},
	})

	records := decodeRecords(t, buffer)
	if len(records) != 1 {
		t.Fatalf("expected a single record, got %v", records)
	}
	record := records[0]
	want := map[string]any{
		"@message": "op",
		"@module":  "vesta",
		"op":       "ADD",
		"pc":       float64(4),
		"gas":      float64(42),
		"depth":    float64(1),
		"stack":    float64(2),
		"top":      vesta.Word{31: 2}.String(),
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("unexpected value for %v: want %v, got %v", key, value, record[key])
		}
	}
}

func TestTracer_EmptyStackIsMarked(t *testing.T) {
	config := Config{PerOpcodeTrace: true}
	buffer := &bytes.Buffer{}
	tracer := New(config, NewLogger(config, buffer, hclog.Info))

	tracer.OpcodeObserver().OnOpcode(vesta.OpcodeStep{OpName: "STOP", Gas: 10})

	if got := buffer.String(); !strings.Contains(got, "op=STOP") || !strings.Contains(got, "top=-empty-") {
		t.Errorf("unexpected log output: %v", got)
	}
}

func TestTracer_DispatchesAreLoggedAtDebugLevel(t *testing.T) {
	recipient := vesta.Address{0xbb}
	msg := vesta.Message{
		Kind:      vesta.Call,
		Sender:    vesta.Address{0xaa},
		Recipient: &recipient,
		Value:     vesta.NewValue(500),
		Gas:       30000,
	}
	tests := map[string]struct {
		level  hclog.Level
		logged bool
	}{
		"info":  {hclog.Info, false},
		"debug": {hclog.Debug, true},
		"trace": {hclog.Trace, true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			config := Config{StructuredOutput: true}
			buffer := &bytes.Buffer{}
			New(config, NewLogger(config, buffer, test.level)).OnDispatch(msg, 1, false)

			records := decodeRecords(t, buffer)
			if !test.logged {
				if len(records) != 0 {
					t.Errorf("unexpected records: %v", records)
				}
				return
			}
			if len(records) != 1 {
				t.Fatalf("expected a single record, got %v", records)
			}
			record := records[0]
			if record["recipient"] != recipient.String() || record["value"] != "500" || record["kind"] != "call" {
				t.Errorf("unexpected record: %v", record)
			}
		})
	}
}

func TestTracer_CreationsHaveNoRecipient(t *testing.T) {
	config := Config{}
	buffer := &bytes.Buffer{}
	New(config, NewLogger(config, buffer, hclog.Debug)).OnDispatch(vesta.Message{Kind: vesta.Create}, 0, true)

	if got := buffer.String(); !strings.Contains(got, "recipient=-create-") {
		t.Errorf("unexpected log output: %v", got)
	}
}

func TestTracer_StateDumpsAreOrderedAndOptional(t *testing.T) {
	accounts := map[vesta.Address]ledger.Account{
		{0xbb}: {Nonce: 2, Storage: map[vesta.Key]vesta.Word{{2}: {1}, {1}: {2}}},
		{0xaa}: {Balance: vesta.NewValue(1000), Code: vesta.Code{0x5b}},
	}

	for _, config := range []Config{{}, {PreStateDump: true}, {PostStateDump: true}} {
		config.StructuredOutput = true
		buffer := &bytes.Buffer{}
		tracer := New(config, NewLogger(config, buffer, hclog.Info))
		tracer.DumpPreState(accounts)
		tracer.DumpPostState(accounts)

		records := decodeRecords(t, buffer)
		if !config.PreStateDump && !config.PostStateDump {
			if len(records) != 0 {
				t.Errorf("unexpected records: %v", records)
			}
			continue
		}
		phase := "pre"
		if config.PostStateDump {
			phase = "post"
		}
		want := []string{
			"account " + vesta.Address{0xaa}.String(),
			"account " + vesta.Address{0xbb}.String(),
			"storage " + vesta.Key{1}.String(),
			"storage " + vesta.Key{2}.String(),
		}
		if len(records) != len(want) {
			t.Fatalf("unexpected number of records: want %d, got %v", len(want), records)
		}
		for i, record := range records {
			got := record["@message"].(string) + " "
			if key, found := record["key"]; found {
				got += key.(string)
			} else {
				got += record["address"].(string)
			}
			if got != want[i] || record["phase"] != phase {
				t.Errorf("unexpected record %d: want %v in phase %v, got %v", i, want[i], phase, record)
			}
		}
		if records[0]["balance"] != "1000" || records[0]["code"] != "0x5b" {
			t.Errorf("unexpected account record: %v", records[0])
		}
	}
}

func TestConfig_CanBeReadFromYaml(t *testing.T) {
	input := `
per-opcode-trace: true
post-state-dump: true
structured-output: true
`
	var config Config
	if err := yaml.Unmarshal([]byte(input), &config); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	want := Config{PerOpcodeTrace: true, PostStateDump: true, StructuredOutput: true}
	if config != want {
		t.Errorf("unexpected config: want %+v, got %+v", want, config)
	}
}
