// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package metrics collects execution statistics as Prometheus metrics.
package metrics

import (
	"io"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "vesta"

// Collector is a dispatch and opcode observer counting messages and executed
// instructions. Metrics are registered on a registry owned by the collector,
// so independent collectors do not interfere.
type Collector struct {
	registry     *prometheus.Registry
	messages     *prometheus.CounterVec
	depth        prometheus.Histogram
	instructions *prometheus.CounterVec
	transactions *prometheus.CounterVec
	gasUsed      prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Number of dispatched messages by kind.",
		}, []string{"kind"}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_depth",
			Help:      "Call depth of dispatched messages.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 64, 256, 1024},
		}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Number of executed instructions by opcode.",
		}, []string{"op"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Number of processed transactions by outcome.",
		}, []string{"outcome"}),
		gasUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_gas_used",
			Help:      "Gas consumed by the top-level call of processed transactions.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}),
	}
	c.registry.MustRegister(c.messages, c.depth, c.instructions, c.transactions, c.gasUsed)
	return c
}

func (c *Collector) OnDispatch(msg vesta.Message, depth int, _ bool) {
	c.messages.WithLabelValues(msg.Kind.String()).Inc()
	c.depth.Observe(float64(depth))
}

func (c *Collector) OnOpcode(step vesta.OpcodeStep) {
	c.instructions.WithLabelValues(step.OpName).Inc()
}

// ObserveTransaction records the outcome of a processed transaction.
func (c *Collector) ObserveTransaction(success bool, gasUsed vesta.Gas) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.transactions.WithLabelValues(outcome).Inc()
	c.gasUsed.Observe(float64(gasUsed))
}

// Registry provides access to the collected metrics, e.g. for serving them.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes all collected metrics in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	return nil
}
