// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCollector_CountsMessagesByKind(t *testing.T) {
	c := NewCollector()
	c.OnDispatch(vesta.Message{Kind: vesta.Call}, 0, true)
	c.OnDispatch(vesta.Message{Kind: vesta.Call}, 1, false)
	c.OnDispatch(vesta.Message{Kind: vesta.Create}, 2, false)

	if got := testutil.ToFloat64(c.messages.WithLabelValues("call")); got != 2 {
		t.Errorf("unexpected number of calls: %v", got)
	}
	if got := testutil.ToFloat64(c.messages.WithLabelValues("create")); got != 1 {
		t.Errorf("unexpected number of creations: %v", got)
	}
	if got := testutil.CollectAndCount(c.depth); got != 1 {
		t.Errorf("unexpected number of depth metrics: %v", got)
	}
}

func TestCollector_CountsInstructionsByName(t *testing.T) {
	c := NewCollector()
	for _, name := range []string{"PUSH1", "PUSH1", "ADD", "STOP"} {
		c.OnOpcode(vesta.OpcodeStep{OpName: name})
	}
	tests := map[string]float64{"PUSH1": 2, "ADD": 1, "STOP": 1, "MUL": 0}
	for name, want := range tests {
		if got := testutil.ToFloat64(c.instructions.WithLabelValues(name)); got != want {
			t.Errorf("unexpected count for %v: want %v, got %v", name, want, got)
		}
	}
}

func TestCollector_ObservesTransactions(t *testing.T) {
	c := NewCollector()
	c.ObserveTransaction(true, 5)
	c.ObserveTransaction(false, 100000)
	c.ObserveTransaction(true, 21)

	if got := testutil.ToFloat64(c.transactions.WithLabelValues("success")); got != 2 {
		t.Errorf("unexpected number of successful transactions: %v", got)
	}
	if got := testutil.ToFloat64(c.transactions.WithLabelValues("failure")); got != 1 {
		t.Errorf("unexpected number of failed transactions: %v", got)
	}

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	var gas *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "vesta_transaction_gas_used" {
			gas = family
		}
	}
	if gas == nil {
		t.Fatalf("gas histogram not found in %v", families)
	}
	histogram := gas.GetMetric()[0].GetHistogram()
	if histogram.GetSampleCount() != 3 || histogram.GetSampleSum() != 100026 {
		t.Errorf("unexpected histogram: %v", histogram)
	}
}

func TestCollector_WritesTextFormat(t *testing.T) {
	c := NewCollector()
	c.OnDispatch(vesta.Message{Kind: vesta.StaticCall}, 3, false)

	buffer := &bytes.Buffer{}
	if err := c.WriteText(buffer); err != nil {
		t.Fatalf("failed to write metrics: %v", err)
	}
	output := buffer.String()
	for _, want := range []string{
		"# TYPE vesta_messages_total counter",
		`vesta_messages_total{kind="static_call"} 1`,
		"vesta_message_depth_count 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in output:\n%v", want, output)
		}
	}
}

func TestCollector_InstancesAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.OnOpcode(vesta.OpcodeStep{OpName: "STOP"})
	if got := testutil.ToFloat64(b.instructions.WithLabelValues("STOP")); got != 0 {
		t.Errorf("collectors share state: %v", got)
	}
}
